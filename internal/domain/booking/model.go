package booking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Booking is a student's reservation of a slot as returned by the API.
// CancellationCode is only meaningful in the response to the creating request.
type Booking struct {
	ID               int64
	SlotID           int64
	StudentName      string
	StudentEmail     string
	Question         string
	VKRType          string
	Magistracy       string
	ArtifactsLink    string
	CancellationCode string
	CreatedAt        time.Time
}

// Form field names, shared by templates and validation errors.
const (
	FieldSlot          = "slotId"
	FieldStudentName   = "studentName"
	FieldStudentEmail  = "studentEmail"
	FieldVKRType       = "vkrType"
	FieldMagistracy    = "magistracy"
	FieldQuestion      = "question"
	FieldArtifactsLink = "artifactsLink"
)

// FieldError reports the first missing required field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

// Request is a student's booking form.
type Request struct {
	SlotID        int64
	StudentName   string
	StudentEmail  string
	VKRType       string
	Magistracy    string
	Question      string
	ArtifactsLink string
}

// Normalize trims the free-text fields. Select values are kept verbatim.
func (r Request) Normalize() Request {
	r.StudentName = strings.TrimSpace(r.StudentName)
	r.StudentEmail = strings.TrimSpace(r.StudentEmail)
	r.Question = strings.TrimSpace(r.Question)
	r.ArtifactsLink = strings.TrimSpace(r.ArtifactsLink)
	return r
}

// Validate checks presence (not format) of the seven required fields, in form order.
// PRE: Request has been normalized
// POST: Returns nil, or a *FieldError naming the first missing field
func (r Request) Validate() error {
	checks := []struct {
		field   string
		missing bool
		message string
	}{
		{FieldSlot, r.SlotID <= 0, "Сначала выберите слот"},
		{FieldStudentName, r.StudentName == "", "Заполните поле 'Ваше имя'"},
		{FieldStudentEmail, r.StudentEmail == "", "Заполните поле 'Почта'"},
		{FieldVKRType, r.VKRType == "", "Выберите тип работы"},
		{FieldMagistracy, r.Magistracy == "", "Выберите магистратуру"},
		{FieldQuestion, r.Question == "", "Заполните поле 'Опишите запрос'"},
		{FieldArtifactsLink, r.ArtifactsLink == "", "Заполните поле 'Приложите ссылку на артефакты'"},
	}
	for _, c := range checks {
		if c.missing {
			return &FieldError{Field: c.field, Message: c.message}
		}
	}
	return nil
}

// Receipt is what the student keeps after booking: the server-issued id and
// code plus the fields they typed. It is never re-fetched from the server.
type Receipt struct {
	BookingID        int64
	CancellationCode string
	StudentName      string
	StudentEmail     string
	VKRType          string
	Magistracy       string
	Question         string
	ArtifactsLink    string
}

// NewReceipt combines the created booking's id and code with the submitted form.
func NewReceipt(created Booking, req Request) Receipt {
	return Receipt{
		BookingID:        created.ID,
		CancellationCode: created.CancellationCode,
		StudentName:      req.StudentName,
		StudentEmail:     req.StudentEmail,
		VKRType:          req.VKRType,
		Magistracy:       req.Magistracy,
		Question:         req.Question,
		ArtifactsLink:    req.ArtifactsLink,
	}
}

// Filename is the download name of the receipt.
func (rc Receipt) Filename() string {
	return fmt.Sprintf("booking_%d.txt", rc.BookingID)
}

// Text renders the plain-text receipt. Optional lines are blank when the field is empty.
func (rc Receipt) Text() string {
	optional := func(label, value string) string {
		if value == "" {
			return ""
		}
		return label + ": " + value
	}
	lines := []string{
		"Запись на консультацию",
		"",
		"ID записи: " + strconv.FormatInt(rc.BookingID, 10),
		"Код отмены: " + rc.CancellationCode,
		"",
		"Информация о записи:",
		"Имя: " + rc.StudentName,
		"Email: " + rc.StudentEmail,
		optional("Тип ВКР(С)", rc.VKRType),
		optional("Магистратура", rc.Magistracy),
		"Запрос: " + rc.Question,
		optional("Артефакты", rc.ArtifactsLink),
		"",
		"Сохраните эту информацию для отмены записи.",
	}
	return strings.Join(lines, "\n")
}

// Cancellation errors
var (
	ErrNoBookingID        = errors.New("Укажите ID записи")
	ErrNoCancellationCode = errors.New("Укажите код отмены")
)

// Cancellation is the self-service cancel form.
type Cancellation struct {
	BookingID string
	Code      string
}

// Parse validates the form and returns the numeric booking id and trimmed code.
// PRE: none
// POST: Returns id > 0 and a non-empty code, or an error
func (c Cancellation) Parse() (int64, string, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.BookingID), 10, 64)
	if err != nil || id <= 0 {
		return 0, "", ErrNoBookingID
	}
	code := strings.TrimSpace(c.Code)
	if code == "" {
		return 0, "", ErrNoCancellationCode
	}
	return id, code, nil
}
