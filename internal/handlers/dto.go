package handlers

// LoginRequest für Login. (Einfach)
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SendOTPRequest fordert einen Registrierungscode an.
type SendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyOTPRequest schließt die Registrierung ab.
type VerifyOTPRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	OTP      string `json:"otp" validate:"required,numeric,len=6"`
}

type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// MemberRequest wird erst im Service geprüft, damit die Berechtigung vor dem Inhalt greift.
type MemberRequest struct {
	User string `json:"user"`
	Role string `json:"role"`
}

type AddMembersRequest struct {
	NewMembers []MemberRequest `json:"newMembers"`
}

type CreateTicketRequest struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description" validate:"max=10000"`
	Priority    string `json:"priority"`
	Project     string `json:"project" validate:"required"`
}

// UpdateTicketRequest: nicht gesendete Felder bleiben nil.
type UpdateTicketRequest struct {
	Title       *string   `json:"title" validate:"omitnil,notblank,max=200"`
	Description *string   `json:"description" validate:"omitnil,max=10000"`
	Status      *string   `json:"status"`
	Priority    *string   `json:"priority"`
	Assignees   *[]string `json:"assignees"`
}

type CommentRequest struct {
	Text string `json:"text" validate:"required,notblank,max=5000"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// MembersResponse enthält das Projekt nur, wenn tatsächlich jemand hinzugefügt wurde.
type MembersResponse struct {
	Message string      `json:"message"`
	Project interface{} `json:"project,omitempty"`
}

type UploadResponse struct {
	Message  string `json:"message"`
	ImageURL string `json:"imageUrl"`
}
