package assets

import (
	"bytes"
	"fmt"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	gofpdf "github.com/lvillar/gofpdf"
	"github.com/lvillar/gofpdf/table"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"invitegen/internal/render"
)

// Size of the builtin invitation artwork in pixels.
const (
	ArtworkWidth  = 1080
	ArtworkHeight = 1350
)

// InvitationArtwork draws the default invitation background as PNG.
func InvitationArtwork() ([]byte, error) {
	title, err := text.NewFontSource(gobold.TTF)
	if err != nil {
		return nil, err
	}
	body, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(ArtworkWidth, ArtworkHeight)
	defer dc.Close()

	dc.ClearWithColor(gg.Hex("#fbf4e6"))

	dc.SetHexColor("#c9a227")
	dc.SetLineWidth(12)
	dc.DrawRoundedRectangle(40, 40, ArtworkWidth-80, ArtworkHeight-80, 36)
	if err := dc.Stroke(); err != nil {
		return nil, err
	}
	dc.SetLineWidth(3)
	dc.DrawRoundedRectangle(70, 70, ArtworkWidth-140, ArtworkHeight-140, 24)
	if err := dc.Stroke(); err != nil {
		return nil, err
	}
	for _, c := range [][2]float64{{70, 70}, {ArtworkWidth - 70, 70}, {70, ArtworkHeight - 70}, {ArtworkWidth - 70, ArtworkHeight - 70}} {
		dc.DrawCircle(c[0], c[1], 22)
	}
	if err := dc.Fill(); err != nil {
		return nil, err
	}

	dc.SetHexColor("#7a1f1f")
	dc.SetFont(title.Face(78))
	dc.DrawStringAnchored("You are invited", ArtworkWidth/2, 280, 0.5, 0)
	dc.SetFont(body.Face(34))
	dc.DrawStringAnchored("with warm regards we welcome", ArtworkWidth/2, 380, 0.5, 0)

	dc.SetHexColor("#c9a227")
	dc.SetLineWidth(2)
	dc.DrawLine(240, 430, ArtworkWidth-240, 430)
	if err := dc.Stroke(); err != nil {
		return nil, err
	}

	dc.SetHexColor("#fffdf7")
	dc.DrawRoundedRectangle(200, 470, ArtworkWidth-400, 300, 24)
	if err := dc.Fill(); err != nil {
		return nil, err
	}

	dc.SetHexColor("#7a1f1f")
	dc.SetFont(body.Face(32))
	dc.DrawStringAnchored("to join us for the celebration", ArtworkWidth/2, 880, 0.5, 0)
	dc.DrawStringAnchored("Saturday evening, six o'clock", ArtworkWidth/2, 940, 0.5, 0)
	dc.SetFont(body.Face(26))
	dc.DrawStringAnchored("The programme is enclosed", ArtworkWidth/2, 1180, 0.5, 0)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type programmeItem struct {
	Time, Event, Venue string
}

var programme = []programmeItem{
	{"17:30", "Arrival of guests", "Garden lawn"},
	{"18:00", "Welcome address", "Main hall"},
	{"18:30", "Lamp lighting ceremony", "Main hall"},
	{"19:00", "Cultural performances", "Open-air stage"},
	{"20:00", "Felicitation of guests", "Main hall"},
	{"20:30", "Dinner", "Banquet hall"},
	{"22:00", "Vote of thanks", "Banquet hall"},
}

// ProgrammeDocument renders the default two-page event programme.
func ProgrammeDocument() ([]byte, error) {
	pdf := render.NewDocument()
	pdf.SetMargins(50, 50, 50)
	page := gofpdf.SizeType{Wd: 595.28, Ht: 841.89}

	pdf.AddPageFormat("P", page)
	pdf.SetTextColor(122, 31, 31)
	pdf.SetFont("Helvetica", "B", 26)
	pdf.SetXY(50, 60)
	pdf.CellFormat(495, 34, "Programme", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(495, 20, "Order of events for the evening", "", 1, "C", false, 0, "")

	gold := table.RGBColor{R: 201, G: 162, B: 39}
	tbl := table.New(pdf)
	tbl.SetPosition(50, 140).SetWidth(495).SetColumnWidths(80, 0, 140)
	tbl.SetStyle(table.TableStyle{
		CellPadding: table.UniformPadding(6),
		Border:      &table.BorderStyle{Width: 0.5, Color: gold},
		CellFont:    &table.FontSpec{Family: "Helvetica", Size: 11},
		HeaderStyle: &table.CellStyle{
			FillColor: &gold,
			TextColor: &table.RGBColor{R: 255, G: 255, B: 255},
			Font:      &table.FontSpec{Family: "Helvetica", Style: "B", Size: 11},
			Align:     "C",
		},
		AlternateRows: &table.AlternateStyle{
			Even: table.CellStyle{FillColor: &table.RGBColor{R: 251, G: 244, B: 230}},
			Odd:  table.CellStyle{FillColor: &table.RGBColor{R: 255, G: 255, B: 255}},
		},
	})
	header := tbl.AddHeaderRow()
	header.AddCell("Time")
	header.AddCell("Event")
	header.AddCell("Venue")
	for _, item := range programme {
		row := tbl.AddRow()
		row.AddCell(item.Time).SetAlign("C")
		row.AddCell(item.Event)
		row.AddCell(item.Venue)
	}
	if err := tbl.Render(); err != nil {
		return nil, fmt.Errorf("assets: programme table: %w", err)
	}

	pdf.AddPageFormat("P", page)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetXY(50, 60)
	pdf.CellFormat(495, 30, "Notes for guests", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(40, 40, 40)
	pdf.MultiCell(495, 18, "Please arrive before the welcome address. Seating in the main hall "+
		"is arranged by invitation. Parking is available next to the garden lawn. "+
		"Kindly carry this invitation with you.", "", "L", false)

	if pdf.Err() {
		return nil, fmt.Errorf("assets: programme: %w", pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("assets: programme: %w", err)
	}
	return buf.Bytes(), nil
}
