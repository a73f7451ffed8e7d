package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/mockinterview/internal/api/handlers"
	"github.com/yoockh/mockinterview/internal/api/middleware"
)

type Deps struct {
	JWT       middleware.JWTConfig
	DemoRoles []string

	Setup         *handlers.SetupHandler
	Interview     *handlers.InterviewHandler
	Results       *handlers.ResultsHandler
	Voice         *handlers.VoiceHandler
	VoiceAuth     *handlers.VoiceAuthHandler
	Transcription *handlers.TranscriptionHandler
	WS            *handlers.WSHandler
	Demo          *handlers.DemoHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := r.Group("/api")

	// Voice pipeline webhook; authenticated by signature, not JWT.
	api.GET("/voice-agent", d.Voice.Health)
	api.POST("/voice-agent", d.Voice.Webhook)

	auth := api.Group("/")
	auth.Use(middleware.JWTAuth(d.JWT))

	auth.POST("/setup/process", d.Setup.Process)

	auth.POST("/interview/create", d.Interview.Create)
	auth.GET("/interview/:id/progress", d.Interview.Progress)
	auth.POST("/interview/:id/complete", d.Interview.Complete)
	auth.GET("/latest-interview", d.Interview.Latest)
	auth.GET("/dashboard", d.Interview.Dashboard)

	auth.GET("/results/:id", d.Results.Get)

	auth.POST("/voice-auth", d.VoiceAuth.Authorize)
	auth.GET("/transcription-stream", d.Transcription.Stream)
	auth.GET("/ws/transcription/:id", d.WS.Transcription)

	demo := auth.Group("/demo")
	demo.Use(middleware.RequireRole(d.DemoRoles...))
	demo.POST("/seed", d.Demo.Seed)
	demo.POST("/:id/conversation", d.Demo.AppendConversation)
}
