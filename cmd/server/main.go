// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
	"github.com/jaycherian/gcp-go-mood-music/internal/telemetry"
)

func main() {
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := GetConfig()

	shutdownTelemetry, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	InitState(ctx)
	slog.Info("Initialized State")

	r := gin.Default()
	r.Use(otelgin.Middleware(config.Application.Name))
	r.Use(cors.Default())

	apiV1 := r.Group("/api/v1")
	{
		RecommendationRouter(apiV1)
		TrackRouter(apiV1)
		PreviewUpload(apiV1)
	}

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to listen", "error", err)
		}
	}()
	slog.Info("Server Ready on port 8080")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	// Cancel the root context first so the listeners and the snapshot worker
	// stop (the worker runs a final profile flush on its way out).
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Error("Telemetry Shutdown Failed", "error", err)
	}
	state.cloud.Close()

	log.Println("Server exiting")
}

// RecommendRequest is the JSON body of the recommend route. Signals carry
// pre-scored classifier output; Text optionally adds a free-text mood
// description that is scored server side onto the text channel.
type RecommendRequest struct {
	UserId  string            `json:"user_id"`
	Count   int               `json:"count"`
	Signals []model.RawSignal `json:"signals"`
	Text    string            `json:"text"`
}

// RecommendationRouter sets up the recommend, feedback, and stats routes.
func RecommendationRouter(r *gin.RouterGroup) {
	r.POST("/recommend", func(c *gin.Context) {
		var req RecommendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.UserId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}

		signals := req.Signals
		if req.Text != "" {
			textSignal, err := state.textSignals.Score(c.Request.Context(), req.Text)
			if err != nil {
				// A failed text scoring degrades to the remaining signals.
				slog.Warn("text signal scoring failed", "error", err)
			} else {
				signals = append(signals, *textSignal)
			}
		}

		result, err := state.recommender.Recommend(c.Request.Context(), req.UserId, signals, req.Count)
		if err != nil {
			if errors.Is(err, model.ErrNoSignal) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no usable emotion signal"})
				return
			}
			slog.Error("recommendation failed", "user", req.UserId, "error", err)
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, result)
	})

	r.POST("/feedback", func(c *gin.Context) {
		var event model.FeedbackEvent
		if err := c.ShouldBindJSON(&event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// Feedback is fire and forget: a rejected event is logged but never
		// surfaced, so a misbehaving client cannot tell feedback apart from
		// a dropped message.
		if _, err := state.recommender.Record(c.Request.Context(), &event); err != nil {
			slog.Warn("feedback rejected", "user", event.UserId, "error", err)
		}
		c.Status(http.StatusNoContent)
	})

	// Handler for GET /playlist/generate?emotions=<a,b>&count=<n>
	r.GET("/playlist/generate", func(c *gin.Context) {
		emotions := make([]string, 0)
		for _, label := range strings.Split(c.Query("emotions"), ",") {
			if label = strings.TrimSpace(label); label != "" {
				emotions = append(emotions, label)
			}
		}
		if len(emotions) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "emotions is required"})
			return
		}
		count, err := strconv.Atoi(c.DefaultQuery("count", "0"))
		if err != nil {
			count = 0
		}
		userId := c.Query("user_id")

		result, err := state.recommender.GeneratePlaylist(c.Request.Context(), userId, emotions, count)
		if err != nil {
			if errors.Is(err, model.ErrNoSignal) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no usable emotion signal"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	r.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"catalog_size":    state.featureIndex.Len(),
			"catalog_version": state.featureIndex.Version(),
			"served":          state.recommender.Stats(),
		})
	})
}

// TrackRouter sets up the catalog retrieval routes.
func TrackRouter(r *gin.RouterGroup) {
	tracks := r.Group("/tracks")
	{
		// Handler for GET /tracks?s=<query>&count=<n>
		tracks.GET("", func(c *gin.Context) {
			query := c.Query("s")
			count, err := strconv.Atoi(c.DefaultQuery("count", "10"))
			if err != nil {
				count = 10
			}
			if len(query) == 0 {
				c.Status(http.StatusBadRequest)
				return
			}
			c.JSON(http.StatusOK, state.featureIndex.Search(query, count))
		})

		tracks.GET("/:id", func(c *gin.Context) {
			id := c.Param("id")
			// Serve from the in-memory index first; it holds everything that
			// is recommendable, including tracks not yet persisted.
			if track := state.featureIndex.Get(id); track != nil {
				c.JSON(http.StatusOK, track)
				return
			}
			track, err := state.trackService.Get(c.Request.Context(), id)
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.JSON(http.StatusOK, track)
		})

		tracks.GET("/:id/preview", func(c *gin.Context) {
			id := c.Param("id")
			track := state.featureIndex.Get(id)
			if track == nil {
				var err error
				track, err = state.trackService.Get(c.Request.Context(), id)
				if err != nil {
					c.JSON(http.StatusNotFound, gin.H{"error": "track not found"})
					return
				}
			}
			if track.PreviewObject == "" {
				c.JSON(http.StatusNotFound, gin.H{"error": "track has no preview"})
				return
			}
			signedURL, err := state.trackService.GenerateSignedURL(track.PreviewObject, 15*time.Minute)
			if err != nil {
				slog.Error("failed to sign preview url", "track", id, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate preview URL"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": signedURL})
		})
	}
}

// PreviewUpload sets up the route for uploading track preview audio to the
// preview bucket. Files that are not recognizable audio are rejected before
// anything touches GCS.
func PreviewUpload(r *gin.RouterGroup) {
	upload := r.Group("/uploads")
	{
		upload.POST("", func(c *gin.Context) {
			form, err := c.MultipartForm()
			if err != nil {
				c.String(http.StatusBadRequest, "get form err: %s", err.Error())
				return
			}
			files := form.File["files"]
			bucket := state.cloud.StorageClient.Bucket(state.config.Storage.PreviewBucket)

			for _, file := range files {
				src, err := file.Open()
				if err != nil {
					c.String(http.StatusBadRequest, "open file err: %s", err.Error())
					return
				}
				content, err := io.ReadAll(src)
				_ = src.Close()
				if err != nil {
					c.Status(http.StatusInternalServerError)
					return
				}

				kind, _ := filetype.Match(content)
				if !filetype.IsAudio(content) {
					c.String(http.StatusUnsupportedMediaType, "%s is not an audio file", file.Filename)
					return
				}

				wc := bucket.Object(file.Filename).NewWriter(c.Request.Context())
				wc.ContentType = kind.MIME.Value
				if _, err = wc.Write(content); err != nil {
					c.String(http.StatusInternalServerError, "write file to bucket err: %s", err.Error())
					return
				}
				if err := wc.Close(); err != nil {
					slog.Warn("failed to close bucket writer", "object", file.Filename, "error", err)
				}
			}
			c.String(http.StatusOK, "Uploaded successfully %d files.", len(files))
		})
	}
}
