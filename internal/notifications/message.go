package notifications

// Template names; each maps to templates/<name>.html.
const (
	TemplateOrderCustomer       = "order_customer"
	TemplateOrderVendor         = "order_vendor"
	TemplateOrderAdmin          = "order_admin"
	TemplateOrderStatus         = "order_status"
	TemplateInvoice             = "invoice"
	TemplateAdoptionPoster      = "adoption_poster"
	TemplateAdoptionApplicant   = "adoption_applicant"
	TemplateAdoptionStatus      = "adoption_status"
	TemplateAppointmentVet      = "appointment_vet"
	TemplateAppointmentCustomer = "appointment_customer"
	TemplateAppointmentStatus   = "appointment_status"
	TemplateAdminGeneric        = "admin_generic"
)

// Message is one notification addressed to one party.
type Message struct {
	To          string
	Subject     string
	Template    string
	Data        map[string]any
	Attachments []Attachment
}

// Attachment is rendered from its own template.
type Attachment struct {
	Filename    string
	ContentType string
	Template    string
	Data        map[string]any
}
