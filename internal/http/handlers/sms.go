package handlers

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/textfolk/server/internal/assist"
	"github.com/textfolk/server/internal/phone"
)

// internalErrorReply is the generic failure text for store or transport
// faults, deliberately distinct from every user-input message.
const internalErrorReply = "Something went wrong on our end. Please try again later."

// maxMediaBytes bounds how much of an attachment is read.
const maxMediaBytes = 1 << 20

// SMSHandler handles the inbound message webhook.
type SMSHandler struct {
	svc    *assist.Service
	region string
	client *http.Client
}

// NewSMSHandler creates a new SMS webhook handler.
func NewSMSHandler(svc *assist.Service, region string) *SMSHandler {
	return &SMSHandler{
		svc:    svc,
		region: region,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func isVCardType(contentType string) bool {
	return contentType == "text/vcard" || contentType == "text/x-vcard"
}

// HandleInbound handles POST /sms. The reply travels back in the response
// body as a TwiML message envelope.
func (h *SMSHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	from := r.PostFormValue("From")
	body := r.PostFormValue("Body")
	if from == "" {
		http.Error(w, "missing sender", http.StatusBadRequest)
		return
	}
	if normalized, err := phone.Normalize(from, h.region); err == nil {
		from = normalized
	}

	log.Debug().Str("from", from).Str("body", body).Msg("inbound message")

	reply, err := h.process(r, from, body)
	if err != nil {
		log.Error().Err(err).Str("from", from).Msg("processing inbound message failed")
		reply = internalErrorReply
	}
	writeTwiML(w, reply)
}

// process routes to vCard import when the message declares exactly one
// attachment of a vCard MIME type; any other attachment shape falls through
// to normal text dispatch.
func (h *SMSHandler) process(r *http.Request, from, body string) (string, error) {
	ctx := r.Context()
	if r.PostFormValue("NumMedia") == "1" && isVCardType(r.PostFormValue("MediaContentType0")) {
		data, err := h.fetchMedia(ctx, r.PostFormValue("MediaUrl0"))
		if err != nil {
			return "", fmt.Errorf("fetch attachment: %w", err)
		}
		return h.svc.ImportVCard(ctx, from, data)
	}
	return h.svc.Process(ctx, from, body)
}

func (h *SMSHandler) fetchMedia(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty media url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build media request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get media: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return nil, fmt.Errorf("read media: %w", err)
	}
	return data, nil
}

func writeTwiML(w http.ResponseWriter, message string) {
	var escaped bytes.Buffer
	_ = xml.EscapeText(&escaped, []byte(message))

	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Response><Message>%s</Message></Response>`, escaped.String())
}
