package toolkit

import (
	"context"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// QRBackend renders QR code images from text payloads.
type QRBackend interface {
	Generate(ctx context.Context, text string, opts QROptions) (*Blob, error)
}

// QROptions configures QR rendering.
type QROptions struct {
	// Size is the output edge length in pixels. Zero means the 256 default.
	Size int
	// ErrorCorrection is one of L, M, Q, H. Empty means M.
	ErrorCorrection string
	// DarkColor and LightColor are hex colors ("#1a2b3c"). Defaults are black
	// on white.
	DarkColor  string
	LightColor string
}

// DefaultQRSize is the output edge length used when none is requested.
const DefaultQRSize = 256

// QRCodeBackend implements QRBackend on top of skip2/go-qrcode.
type QRCodeBackend struct {
	log Logger
}

// NewQRCodeBackend creates a QR backend.
func NewQRCodeBackend(log Logger) *QRCodeBackend {
	if log == nil {
		log = NewFmtLogger()
	}
	return &QRCodeBackend{log: log}
}

// Generate renders the payload as a PNG.
func (b *QRCodeBackend) Generate(ctx context.Context, text string, opts QROptions) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty QR payload", ErrNoInput)
	}
	q, err := qrcode.New(text, recoveryLevel(opts.ErrorCorrection))
	if err != nil {
		return nil, fmt.Errorf("build QR code: %w", err)
	}
	q.ForegroundColor = parseHexColor(opts.DarkColor, color.Black)
	q.BackgroundColor = parseHexColor(opts.LightColor, color.White)

	size := opts.Size
	if size <= 0 {
		size = DefaultQRSize
	}
	png, err := q.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("render QR code: %w", err)
	}
	return &Blob{Data: png, Type: "image/png"}, nil
}

func recoveryLevel(s string) qrcode.RecoveryLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L":
		return qrcode.Low
	case "Q":
		return qrcode.High
	case "H":
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

// parseHexColor parses "#rgb" or "#rrggbb", returning def on any parse failure.
func parseHexColor(s string, def color.Color) color.Color {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return def
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return def
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// WiFiPayload builds the WIFI: payload joining a network from a scanned code.
// Security is one of WPA, WEP or nopass.
func WiFiPayload(ssid, password, security string, hidden bool) string {
	if security == "" {
		security = "WPA"
	}
	var sb strings.Builder
	sb.WriteString("WIFI:T:")
	sb.WriteString(qrEscape(security))
	sb.WriteString(";S:")
	sb.WriteString(qrEscape(ssid))
	sb.WriteString(";P:")
	sb.WriteString(qrEscape(password))
	sb.WriteString(";")
	if hidden {
		sb.WriteString("H:true;")
	}
	sb.WriteString(";")
	return sb.String()
}

// ContactInfo holds the fields of a vCard payload. Empty fields are omitted.
type ContactInfo struct {
	FirstName    string
	LastName     string
	Organization string
	Title        string
	Phone        string
	Email        string
	URL          string
	Address      string
}

// VCardPayload builds a version 3.0 vCard for embedding in a QR code.
func VCardPayload(c ContactInfo) string {
	lines := []string{"BEGIN:VCARD", "VERSION:3.0"}
	if c.FirstName != "" || c.LastName != "" {
		lines = append(lines,
			fmt.Sprintf("N:%s;%s", c.LastName, c.FirstName),
			fmt.Sprintf("FN:%s", strings.TrimSpace(c.FirstName+" "+c.LastName)))
	}
	if c.Organization != "" {
		lines = append(lines, "ORG:"+c.Organization)
	}
	if c.Title != "" {
		lines = append(lines, "TITLE:"+c.Title)
	}
	if c.Phone != "" {
		lines = append(lines, "TEL:"+c.Phone)
	}
	if c.Email != "" {
		lines = append(lines, "EMAIL:"+c.Email)
	}
	if c.URL != "" {
		lines = append(lines, "URL:"+c.URL)
	}
	if c.Address != "" {
		lines = append(lines, "ADR:;;"+c.Address+";;;;")
	}
	lines = append(lines, "END:VCARD")
	return strings.Join(lines, "\n")
}

func qrEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `;`, `\;`, `,`, `\,`, `:`, `\:`, `"`, `\"`)
	return r.Replace(s)
}
