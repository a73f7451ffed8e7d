package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/services"
	"github.com/yoockh/mockinterview/internal/utils"
)

const (
	signatureHeader    = "layercode-signature"
	signatureTolerance = 5 * time.Minute
	maxWebhookBody     = 10 << 20
)

// VoiceHandler serves the voice pipeline webhook.
type VoiceHandler struct {
	agent  services.VoiceAgentService
	secret string
	log    *logrus.Logger
	now    func() time.Time
}

// NewVoiceHandler builds the webhook handler; an empty secret disables signature checks.
func NewVoiceHandler(agent services.VoiceAgentService, secret string, log *logrus.Logger) *VoiceHandler {
	return &VoiceHandler{agent: agent, secret: secret, log: log, now: time.Now}
}

type sseFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	TurnID  string `json:"turn_id"`
}

func (h *VoiceHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *VoiceHandler) Webhook(c *gin.Context) {
	const op = "VoiceHandler.Webhook"

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "failed to read body", err))
		return
	}

	if h.secret != "" {
		if err := verifySignature(h.secret, c.GetHeader(signatureHeader), body, h.now()); err != nil {
			h.log.WithError(err).Warn("voice webhook signature rejected")
			writeError(c, utils.E(utils.CodeUnauthorized, op, "invalid signature", err))
			return
		}
	}

	var ev services.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid json body", err))
		return
	}
	ev.InterviewSessionID = c.Query("interviewSessionId")

	reply, err := h.agent.Handle(c.Request.Context(), ev)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	turnID := ev.TurnID
	if reply != nil && reply.TurnID != "" {
		turnID = reply.TurnID
	}
	if reply != nil && reply.Content != "" {
		writeSSE(c.Writer, sseFrame{Type: "response.tts", Content: reply.Content, TurnID: turnID})
	}
	writeSSE(c.Writer, sseFrame{Type: "response.end", TurnID: turnID})
	c.Writer.Flush()
}

func writeSSE(w io.Writer, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", b)
}

// verifySignature checks a "t=<unix>,v1=<hex hmac-sha256 of t.body>" header.
func verifySignature(secret, header string, body []byte, now time.Time) error {
	if header == "" {
		return fmt.Errorf("missing %s header", signatureHeader)
	}

	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return fmt.Errorf("malformed signature header")
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid signature timestamp: %w", err)
	}
	if d := now.Sub(time.Unix(unix, 0)); d > signatureTolerance || d < -signatureTolerance {
		return fmt.Errorf("signature timestamp outside tolerance")
	}

	want, err := hex.DecodeString(sig)
	if err != nil {
		return fmt.Errorf("invalid signature encoding: %w", err)
	}
	if !hmac.Equal(want, signPayload(secret, ts, body)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

func signPayload(secret, ts string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}
