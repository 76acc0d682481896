package export

import (
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// LoadSlipClass is one timetable row on the slip.
type LoadSlipClass struct {
	Day     string
	Time    string
	Subject string
	Teacher string
	Room    string
}

// LoadSlip is the admission document sent to the parent.
type LoadSlip struct {
	SchoolName    string
	StudentNumber string
	StudentName   string
	GradeLevel    string
	SectionName   string
	Adviser       string
	Tuition       string
	TotalPaid     string
	Balance       string
	IssuedAt      time.Time
	Classes       []LoadSlipClass
}

// LoadSlipRenderer draws LoadSlip documents.
type LoadSlipRenderer struct{}

// NewLoadSlipRenderer constructs a renderer.
func NewLoadSlipRenderer() *LoadSlipRenderer {
	return &LoadSlipRenderer{}
}

// Render produces the PDF bytes for the slip.
func (r *LoadSlipRenderer) Render(slip LoadSlip) ([]byte, error) {
	if slip.StudentNumber == "" {
		return nil, fmt.Errorf("load slip requires a student number")
	}
	issued := slip.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetTitle(fmt.Sprintf("Load Slip %s", slip.StudentNumber), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 8, slip.SchoolName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, "STUDENT LOAD SLIP", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	writeFields(pdf, []Field{
		{Label: "Student No.", Value: slip.StudentNumber},
		{Label: "Name", Value: slip.StudentName},
		{Label: "Grade Level", Value: slip.GradeLevel},
		{Label: "Section", Value: slip.SectionName},
		{Label: "Adviser", Value: orDash(slip.Adviser)},
		{Label: "Date Issued", Value: issued.Format("January 2, 2006")},
	})

	rows := make([]map[string]string, 0, len(slip.Classes))
	for _, c := range slip.Classes {
		rows = append(rows, map[string]string{
			"Day":     c.Day,
			"Time":    c.Time,
			"Subject": c.Subject,
			"Teacher": c.Teacher,
			"Room":    c.Room,
		})
	}
	if len(rows) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 7, "Class schedule will be posted by the registrar.", "", 1, "", false, 0, "")
		pdf.Ln(2)
	} else {
		writeTable(pdf, Dataset{Headers: []string{"Day", "Time", "Subject", "Teacher", "Room"}, Rows: rows})
		pdf.Ln(4)
	}

	writeFields(pdf, []Field{
		{Label: "Tuition", Value: slip.Tuition},
		{Label: "Total Paid", Value: slip.TotalPaid},
		{Label: "Balance", Value: slip.Balance},
	})

	return output(pdf)
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
