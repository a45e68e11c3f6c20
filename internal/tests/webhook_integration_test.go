package tests

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/textfolk/server/internal/http"
	"github.com/textfolk/server/internal/http/handlers"
)

func newWebhookServer(t *testing.T, f *fixture) *httptest.Server {
	t.Helper()
	smsHandler := handlers.NewSMSHandler(f.svc, "US")
	router := httphandler.NewRouter(smsHandler, "", "")
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func postSMS(t *testing.T, server *httptest.Server, form url.Values) string {
	t.Helper()
	resp, err := http.PostForm(server.URL+"/sms", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/xml", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestWebhookWrapsReplyInTwiML(t *testing.T) {
	f := newFixture(t)
	server := newWebhookServer(t, f)

	body := postSMS(t, server, url.Values{"From": {numberA}, "Body": {"hi"}})
	assert.Contains(t, body, "<Response><Message>")
	assert.Contains(t, body, "To participate:")
}

func TestWebhookVCardAttachment(t *testing.T) {
	f := newFixture(t)
	f.register(numberA, "A")
	server := newWebhookServer(t, f)

	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/vcard")
		_, _ = w.Write([]byte(johnCard))
	}))
	t.Cleanup(media.Close)

	body := postSMS(t, server, url.Values{
		"From":              {numberA},
		"Body":              {""},
		"NumMedia":          {"1"},
		"MediaContentType0": {"text/vcard"},
		"MediaUrl0":         {media.URL},
	})
	assert.Contains(t, body, "1. John Smith")
	assert.Equal(t, 2, f.count("SELECT COUNT(*) FROM deferred_contacts"))
}

func TestWebhookIgnoresNonVCardAttachments(t *testing.T) {
	f := newFixture(t)
	f.register(numberA, "A")
	server := newWebhookServer(t, f)

	// A non-vCard attachment falls through to normal text dispatch.
	body := postSMS(t, server, url.Values{
		"From":              {numberA},
		"Body":              {"h"},
		"NumMedia":          {"1"},
		"MediaContentType0": {"image/jpeg"},
		"MediaUrl0":         {"http://invalid.example/ignored"},
	})
	assert.Contains(t, body, "Available commands:")
}

func TestWebhookHealth(t *testing.T) {
	f := newFixture(t)
	server := newWebhookServer(t, f)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebhookMissingSender(t *testing.T) {
	f := newFixture(t)
	server := newWebhookServer(t, f)

	resp, err := http.PostForm(server.URL+"/sms", url.Values{"Body": {"hi"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
