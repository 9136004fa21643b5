package academy

import "time"

// Belt levels, lowest first.
var BeltLevels = []string{"white", "yellow", "orange", "green", "blue", "purple", "brown", "red", "black"}

type Student struct {
	ID            string    `json:"_id"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	DateOfBirth   string    `json:"dateOfBirth"`
	BeltLevel     string    `json:"beltLevel"`
	Course        string    `json:"course,omitempty"`
	Status        string    `json:"status"`
	GuardianName  string    `json:"guardianName,omitempty"`
	GuardianPhone string    `json:"guardianPhone,omitempty"`
	JoinDate      time.Time `json:"joinDate"`
}

type Course struct {
	ID          string   `json:"_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Level       string   `json:"level,omitempty"`
	Price       float64  `json:"price"`
	Duration    string   `json:"duration,omitempty"`
	Schedule    string   `json:"schedule,omitempty"`
	Instructor  string   `json:"instructor,omitempty"`
	MaxStudents int      `json:"maxStudents,omitempty"`
	Features    []string `json:"features"`
	IsActive    bool     `json:"isActive"`
}

// Criteria describes how an achievement or badge is earned.
type Criteria struct {
	Type        string `json:"type"`
	Points      int    `json:"points,omitempty"`
	Count       int    `json:"count,omitempty"`
	Description string `json:"description,omitempty"`
}

type Achievement struct {
	ID          string   `json:"_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Points      int      `json:"points"`
	Icon        string   `json:"icon,omitempty"`
	Criteria    Criteria `json:"criteria"`
	IsActive    bool     `json:"isActive"`
}

type Badge struct {
	ID          string   `json:"_id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Rarity      string   `json:"rarity"`
	Icon        string   `json:"icon,omitempty"`
	Color       string   `json:"color,omitempty"`
	Criteria    Criteria `json:"criteria"`
}

type Styling struct {
	PrimaryColor    string `json:"primaryColor,omitempty"`
	SecondaryColor  string `json:"secondaryColor,omitempty"`
	FontFamily      string `json:"fontFamily,omitempty"`
	BackgroundImage string `json:"backgroundImage,omitempty"`
	BorderStyle     string `json:"borderStyle,omitempty"`
}

// Position places a template field on the certificate. The values are stored and
// echoed back; nothing here computes a layout.
type Position struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize float64 `json:"fontSize,omitempty"`
}

type CertificateTemplate struct {
	ID          string              `json:"_id"`
	Name        string              `json:"name"`
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Styling     Styling             `json:"styling"`
	Fields      []string            `json:"fields"`
	Positions   map[string]Position `json:"positions,omitempty"`
	IsActive    bool                `json:"isActive"`
}

type Certificate struct {
	ID               string    `json:"_id"`
	VerificationCode string    `json:"verificationCode"`
	StudentID        string    `json:"studentId"`
	StudentName      string    `json:"studentName"`
	Title            string    `json:"title"`
	TemplateID       string    `json:"templateId,omitempty"`
	BeltLevel        string    `json:"beltLevel,omitempty"`
	IssueDate        time.Time `json:"issueDate"`
	Status           string    `json:"status"`
}

type Attendance struct {
	ID        string `json:"_id"`
	StudentID string `json:"studentId"`
	CourseID  string `json:"courseId,omitempty"`
	Date      string `json:"date"`
	Status    string `json:"status"`
	Notes     string `json:"notes,omitempty"`
}

type BeltPromotion struct {
	ID        string `json:"_id"`
	StudentID string `json:"studentId"`
	FromBelt  string `json:"fromBelt"`
	ToBelt    string `json:"toBelt"`
	Date      string `json:"date"`
	Examiner  string `json:"examiner,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type FeePayment struct {
	ID        string  `json:"_id"`
	StudentID string  `json:"studentId"`
	Amount    float64 `json:"amount"`
	DueDate   string  `json:"dueDate"`
	PaidDate  string  `json:"paidDate,omitempty"`
	Method    string  `json:"method,omitempty"`
	Status    string  `json:"status"`
}

type Admission struct {
	ID          string    `json:"_id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	DateOfBirth string    `json:"dateOfBirth"`
	Course      string    `json:"course"`
	Experience  string    `json:"experience,omitempty"`
	Message     string    `json:"message,omitempty"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type Contact struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}
