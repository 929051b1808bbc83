package main

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"CamSession/internal/backend"
	"CamSession/internal/log"
	"CamSession/internal/preview"
	"CamSession/internal/session"
)

var httpLogger = log.WithComponent("http")

func serveHTTP(addr string, coord *session.Coordinator, publisher *preview.Publisher) error {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())

	router.POST("/camera/start", func(c *gin.Context) {
		if err := coord.Start(c.Request.Context()); err != nil {
			MakeResponse(false, -1, err.Error(), c)
			return
		}
		MakeResponse(true, 1, "session started", c)
	})

	router.POST("/camera/stop", func(c *gin.Context) {
		if err := coord.Stop(); err != nil {
			MakeResponse(false, -1, err.Error(), c)
			return
		}
		MakeResponse(true, 1, "session stopped", c)
	})

	router.POST("/camera/pause", func(c *gin.Context) {
		if err := coord.Pause(); err != nil {
			MakeResponse(false, -1, err.Error(), c)
			return
		}
		MakeResponse(true, 1, "preview paused", c)
	})

	router.POST("/camera/resume", func(c *gin.Context) {
		if err := coord.Resume(); err != nil {
			MakeResponse(false, -1, err.Error(), c)
			return
		}
		MakeResponse(true, 1, "preview resumed", c)
	})

	router.POST("/camera/switch", func(c *gin.Context) {
		if err := coord.SwitchDevice(); err != nil {
			MakeResponse(false, -1, err.Error(), c)
			return
		}
		MakeResponse(true, 1, "device switched", c)
	})

	router.POST("/camera/device", func(c *gin.Context) {
		id := c.PostForm("id")
		if id == "" {
			MakeResponse(false, -2, "missing mandatory field `id`", c)
			return
		}
		if err := coord.SetDeviceByID(id); err != nil {
			code := -1
			if errors.Is(err, session.ErrUnknownDevice) {
				code = -3
			}
			MakeResponse(false, code, err.Error(), c)
			return
		}
		MakeResponse(true, 1, "device set", c)
	})

	router.POST("/camera/flash", func(c *gin.Context) {
		mode, ok := backend.ParseFlashMode(c.PostForm("mode"))
		if !ok {
			MakeResponse(false, -2, "unknown flash mode", c)
			return
		}
		if err := coord.SetFlashMode(mode); err != nil {
			MakeResponse(false, -1, err.Error(), c)
			return
		}
		MakeResponse(true, 1, "flash mode set", c)
	})

	router.POST("/camera/photo", func(c *gin.Context) {
		photo, err := coord.TakePicture(c.Request.Context(), nil)
		if err != nil {
			code := -1
			if errors.Is(err, session.ErrMissingPhotoOutput) {
				code = -4
			}
			MakeResponse(false, code, err.Error(), c)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"state":     1,
			"mime_type": photo.MIMEType,
			"photo":     base64.StdEncoding.EncodeToString(photo.Data),
		})
	})

	router.POST("/camera/record/start", func(c *gin.Context) {
		if err := coord.StartRecording(c.Request.Context()); err != nil {
			MakeResponse(false, -1, err.Error(), c)
			return
		}
		MakeResponse(true, 1, "recording requested", c)
	})

	router.POST("/camera/record/stop", func(c *gin.Context) {
		url, err := coord.StopRecording(c.Request.Context())
		if err != nil {
			code := -1
			switch {
			case errors.Is(err, session.ErrMissingVideoOutput):
				code = -4
			case errors.Is(err, session.ErrStopPending):
				code = -5
			}
			MakeResponse(false, code, err.Error(), c)
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": 1, "file": url})
	})

	router.POST("/camera/recording-settings", func(c *gin.Context) {
		var settings *backend.RecordingSettings
		if c.PostForm("clear") != "true" {
			var s backend.RecordingSettings
			if err := c.Bind(&s); err != nil {
				MakeResponse(false, -2, "decode recording settings failed", c)
				return
			}
			settings = &s
		}
		if err := coord.UpdateRecordingSettings(settings); err != nil {
			MakeResponse(false, -1, err.Error(), c)
			return
		}
		MakeResponse(true, 1, "recording settings updated", c)
	})

	router.GET("/camera/devices", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"state": 1, "devices": coord.Devices()})
	})

	router.GET("/camera/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, coord.State())
	})

	router.GET("/camera/events", func(c *gin.Context) {
		serveEvents(coord, c.Writer, c.Request)
	})

	router.GET("/camera/preview", func(c *gin.Context) {
		publisher.ServeSignal(c.Writer, c.Request)
	})

	httpLogger.Info().Str("addr", addr).Msg("http server listening")
	return router.Run(addr)
}

var eventsUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// serveEvents streams coordinator state changes over a websocket, one JSON
// object per mutation, in mutation order.
func serveEvents(coord *session.Coordinator, w http.ResponseWriter, r *http.Request) {
	conn, err := eventsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		httpLogger.Warn().Err(err).Msg("events upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := coord.Subscribe()
	defer cancel()

	for event := range events {
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}

func MakeResponse(success bool, code int, data string, c *gin.Context) {
	state := 1
	if !success {
		state = code
	}
	httpLogger.Debug().Bool("success", success).Int("code", code).Str("msg", data).Msg("response")
	c.JSON(http.StatusOK, gin.H{"state": state, "msg": data})
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization, x-access-token")
		c.Header("Access-Control-Expose-Headers", "Content-Length, Access-Control-Allow-Origin, Access-Control-Allow-Headers, Cache-Control, Content-Language, Content-Type")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
