package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"parcel-tracking/internal/models"
)

// TemplateManager holds the parsed email templates.
type TemplateManager struct {
	statusTmpl *template.Template
}

// NewTemplateManager parses all email templates at startup.
func NewTemplateManager() (*TemplateManager, error) {
	statusTmpl, err := template.New("parcelStatus").Parse(parcelStatusTemplate)
	if err != nil {
		return nil, fmt.Errorf("email.NewTemplateManager: %w", err)
	}
	return &TemplateManager{statusTmpl: statusTmpl}, nil
}

// StatusEmailData holds the dynamic data for a status email.
type StatusEmailData struct {
	ParcelID string
	Headline string
	Message  string
	Link     string
}

var statusCopy = map[models.ParcelStatus][2]string{
	models.StatusDelivered: {"Your parcel has been delivered", "Your parcel was dropped off at the delivery address."},
	models.StatusCancelled: {"Your delivery was cancelled", "The delivery of your parcel was cancelled."},
	models.StatusReturned:  {"Your parcel is being returned", "Your parcel could not be delivered and is on its way back to the sender."},
}

// StatusEmail renders the subject, plain text and HTML bodies for a
// terminal parcel status.
func (tm *TemplateManager) StatusEmail(parcelID string, status models.ParcelStatus, link string) (subject, text, html string, err error) {
	c, ok := statusCopy[status]
	if !ok {
		return "", "", "", fmt.Errorf("email.StatusEmail: no template for status %q", status)
	}
	data := StatusEmailData{ParcelID: parcelID, Headline: c[0], Message: c[1], Link: link}

	var body bytes.Buffer
	if err := tm.statusTmpl.Execute(&body, data); err != nil {
		return "", "", "", fmt.Errorf("email.StatusEmail: %w", err)
	}
	subject = fmt.Sprintf("%s (parcel %s)", c[0], parcelID)
	text = fmt.Sprintf("%s\n\n%s\n", c[0], c[1])
	if link != "" {
		text += "\nDetails: " + link + "\n"
	}
	return subject, text, body.String(), nil
}

// StatusNotifier emails recipients when a parcel reaches a terminal status.
type StatusNotifier struct {
	sender  ServiceInterface
	tm      *TemplateManager
	linkFmt string
}

// NewStatusNotifier creates a notifier. linkFmt, if set, is a printf format
// taking the parcel id, e.g. "https://app.example.com/parcels/%s".
func NewStatusNotifier(sender ServiceInterface, tm *TemplateManager, linkFmt string) *StatusNotifier {
	return &StatusNotifier{sender: sender, tm: tm, linkFmt: linkFmt}
}

func (n *StatusNotifier) NotifyStatus(ctx context.Context, to, parcelID string, status models.ParcelStatus) error {
	link := ""
	if n.linkFmt != "" {
		link = fmt.Sprintf(n.linkFmt, parcelID)
	}
	subject, text, html, err := n.tm.StatusEmail(parcelID, status, link)
	if err != nil {
		return err
	}
	return n.sender.SendEmail(ctx, to, subject, text, html)
}

// --- HTML Template Definitions ---

const parcelStatusTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>{{.Headline}}</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>{{.Headline}}</h2>
	<p>Parcel <strong>{{.ParcelID}}</strong></p>
	<p>{{.Message}}</p>
	{{if .Link}}<p><a href="{{.Link}}">View parcel</a></p>{{end}}
</body>
</html>
`
