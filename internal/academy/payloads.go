package academy

// Payloads are what a create or edit form submits. Their validate tags are
// checked before anything is sent, and again by the development API.

type StudentPayload struct {
	FirstName     string `json:"firstName" validate:"required"`
	LastName      string `json:"lastName" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone,omitempty"`
	DateOfBirth   string `json:"dateOfBirth" validate:"required,date,minage=5"`
	BeltLevel     string `json:"beltLevel" validate:"required,oneof=white yellow orange green blue purple brown red black"`
	Course        string `json:"course,omitempty"`
	Status        string `json:"status,omitempty" validate:"omitempty,oneof=active inactive suspended"`
	GuardianName  string `json:"guardianName,omitempty"`
	GuardianPhone string `json:"guardianPhone,omitempty"`
}

type CoursePayload struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category" validate:"required"`
	Level       string   `json:"level,omitempty" validate:"omitempty,oneof=beginner intermediate advanced all"`
	Price       float64  `json:"price" validate:"min=0"`
	Duration    string   `json:"duration,omitempty"`
	Schedule    string   `json:"schedule,omitempty"`
	Instructor  string   `json:"instructor,omitempty"`
	MaxStudents int      `json:"maxStudents,omitempty" validate:"min=0"`
	Features    []string `json:"features" validate:"min=1,dive,required"`
	IsActive    bool     `json:"isActive"`
}

type CriteriaPayload struct {
	Type        string `json:"type" validate:"required,oneof=points attendance belt streak manual"`
	Points      int    `json:"points,omitempty" validate:"min=0"`
	Count       int    `json:"count,omitempty" validate:"min=0"`
	Description string `json:"description,omitempty"`
}

type AchievementPayload struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category" validate:"required"`
	Points      int             `json:"points" validate:"min=0"`
	Icon        string          `json:"icon,omitempty"`
	Criteria    CriteriaPayload `json:"criteria"`
	IsActive    bool            `json:"isActive"`
}

type BadgePayload struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description,omitempty"`
	Rarity      string          `json:"rarity" validate:"required,oneof=common uncommon rare epic legendary"`
	Icon        string          `json:"icon,omitempty"`
	Color       string          `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Criteria    CriteriaPayload `json:"criteria"`
}

type StylingPayload struct {
	PrimaryColor    string `json:"primaryColor,omitempty" validate:"omitempty,hexcolor"`
	SecondaryColor  string `json:"secondaryColor,omitempty" validate:"omitempty,hexcolor"`
	FontFamily      string `json:"fontFamily,omitempty"`
	BackgroundImage string `json:"backgroundImage,omitempty"`
	BorderStyle     string `json:"borderStyle,omitempty"`
}

type TemplatePayload struct {
	Name        string              `json:"name" validate:"required"`
	Type        string              `json:"type" validate:"required,oneof=belt course achievement participation"`
	Description string              `json:"description,omitempty"`
	Styling     StylingPayload      `json:"styling"`
	Fields      []string            `json:"fields"`
	Positions   map[string]Position `json:"positions,omitempty"`
	IsActive    bool                `json:"isActive"`
}

type CertificatePayload struct {
	StudentID   string `json:"studentId" validate:"required"`
	StudentName string `json:"studentName" validate:"required"`
	Title       string `json:"title" validate:"required"`
	TemplateID  string `json:"templateId,omitempty"`
	BeltLevel   string `json:"beltLevel,omitempty"`
	Status      string `json:"status,omitempty" validate:"omitempty,oneof=active revoked"`
}

type AttendancePayload struct {
	StudentID string `json:"studentId" validate:"required"`
	CourseID  string `json:"courseId,omitempty"`
	Date      string `json:"date" validate:"required,date"`
	Status    string `json:"status" validate:"required,oneof=present absent late excused"`
	Notes     string `json:"notes,omitempty"`
}

type BeltPayload struct {
	StudentID string `json:"studentId" validate:"required"`
	FromBelt  string `json:"fromBelt" validate:"required"`
	ToBelt    string `json:"toBelt" validate:"required,nefield=FromBelt"`
	Date      string `json:"date" validate:"required,date"`
	Examiner  string `json:"examiner,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type FeePayload struct {
	StudentID string  `json:"studentId" validate:"required"`
	Amount    float64 `json:"amount" validate:"min=0"`
	DueDate   string  `json:"dueDate" validate:"required,date"`
	PaidDate  string  `json:"paidDate,omitempty" validate:"omitempty,date"`
	Method    string  `json:"method,omitempty" validate:"omitempty,oneof=cash card transfer online"`
	Status    string  `json:"status" validate:"required,oneof=paid pending overdue"`
}

type AdmissionPayload struct {
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required"`
	DateOfBirth string `json:"dateOfBirth" validate:"required,date,minage=5"`
	Course      string `json:"course" validate:"required"`
	Experience  string `json:"experience,omitempty"`
	Message     string `json:"message,omitempty"`
}

type ContactPayload struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required,min=10"`
}
