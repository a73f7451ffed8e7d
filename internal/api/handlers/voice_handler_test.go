package handlers

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/mockinterview/internal/logger"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/services"
)

type fakeAgent struct {
	got   services.WebhookEvent
	reply *services.AgentReply
	err   error
}

func (f *fakeAgent) Handle(_ context.Context, ev services.WebhookEvent) (*services.AgentReply, error) {
	f.got = ev
	return f.reply, f.err
}

func init() { gin.SetMode(gin.TestMode) }

func voiceRouter(h *VoiceHandler) *gin.Engine {
	r := gin.New()
	r.GET("/api/voice-agent", h.Health)
	r.POST("/api/voice-agent", h.Webhook)
	return r
}

func TestVoiceHandler_Health(t *testing.T) {
	r := voiceRouter(NewVoiceHandler(&fakeAgent{}, "", logger.Discard()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/voice-agent", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestVoiceHandler_MessageStreamsReply(t *testing.T) {
	agent := &fakeAgent{reply: &services.AgentReply{TurnID: "t1", Content: "Tell me more.", MessageType: models.MessageFollowUp}}
	r := voiceRouter(NewVoiceHandler(agent, "", logger.Discard()))

	body := `{"type":"message","text":"I built it","turn_id":"t1","session_id":"voice-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/voice-agent?interviewSessionId=iv-1", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t,
		`data: {"type":"response.tts","content":"Tell me more.","turn_id":"t1"}`+"\n\n"+
			`data: {"type":"response.end","turn_id":"t1"}`+"\n\n",
		w.Body.String())

	assert.Equal(t, "message", agent.got.Type)
	assert.Equal(t, "voice-1", agent.got.SessionID)
	assert.Equal(t, "iv-1", agent.got.InterviewSessionID)
}

func TestVoiceHandler_SessionEndOnlyEnds(t *testing.T) {
	agent := &fakeAgent{reply: &services.AgentReply{TurnID: "t9"}}
	r := voiceRouter(NewVoiceHandler(agent, "", logger.Discard()))

	req := httptest.NewRequest(http.MethodPost, "/api/voice-agent", strings.NewReader(`{"type":"session.end","turn_id":"t9"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `data: {"type":"response.end","turn_id":"t9"}`+"\n\n", w.Body.String())
}

func TestVoiceHandler_InvalidBody(t *testing.T) {
	r := voiceRouter(NewVoiceHandler(&fakeAgent{}, "", logger.Discard()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/voice-agent", strings.NewReader("{")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)
}

func signedRequest(secret, body string, at time.Time) *http.Request {
	ts := strconv.FormatInt(at.Unix(), 10)
	sig := hex.EncodeToString(signPayload(secret, ts, []byte(body)))
	req := httptest.NewRequest(http.MethodPost, "/api/voice-agent", strings.NewReader(body))
	req.Header.Set(signatureHeader, "t="+ts+",v1="+sig)
	return req
}

func TestVoiceHandler_Signature(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	body := `{"type":"message","text":"hi","turn_id":"t1"}`

	tests := []struct {
		name string
		req  func() *http.Request
		want int
	}{
		{"valid", func() *http.Request { return signedRequest("s3cret", body, now) }, http.StatusOK},
		{"wrong secret", func() *http.Request { return signedRequest("other", body, now) }, http.StatusUnauthorized},
		{"stale timestamp", func() *http.Request { return signedRequest("s3cret", body, now.Add(-time.Hour)) }, http.StatusUnauthorized},
		{"missing header", func() *http.Request {
			return httptest.NewRequest(http.MethodPost, "/api/voice-agent", strings.NewReader(body))
		}, http.StatusUnauthorized},
		{"tampered body", func() *http.Request {
			req := signedRequest("s3cret", body, now)
			tampered := signedRequest("s3cret", `{"type":"message","text":"bye"}`, now)
			tampered.Header.Set(signatureHeader, req.Header.Get(signatureHeader))
			return tampered
		}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := &fakeAgent{reply: &services.AgentReply{TurnID: "t1", Content: "ok"}}
			h := NewVoiceHandler(agent, "s3cret", logger.Discard())
			h.now = func() time.Time { return now }

			w := httptest.NewRecorder()
			voiceRouter(h).ServeHTTP(w, tt.req())
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestVerifySignature_Malformed(t *testing.T) {
	now := time.Now()
	assert.Error(t, verifySignature("s", "garbage", nil, now))
	assert.Error(t, verifySignature("s", "t=abc,v1=00", nil, now))
	assert.Error(t, verifySignature("s", "t="+strconv.FormatInt(now.Unix(), 10)+",v1=zz", nil, now))
}
