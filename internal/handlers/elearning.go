package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"siteops-backend/internal/services"
	"siteops-backend/pkg/utils"
)

// videoPath resolves a file name inside publicDir. Names with path
// separators or dot segments are rejected.
func videoPath(publicDir, name string) (string, bool) {
	if name == "" || name == "." || name == ".." {
		return "", false
	}
	if strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return "", false
	}
	return filepath.Join(publicDir, name), true
}

// TranscribeVideo runs the audio extraction and speech-to-text pipeline
// POST /api/transcribe-video
func TranscribeVideo(svc *services.TranscriptionService, publicDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			VideoFileName string `json:"videoFileName"`
		}
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.VideoFileName == "" {
			utils.RespondError(w, http.StatusBadRequest, "Video file name is required")
			return
		}

		log.Printf("📨 Received transcription request for: %s", req.VideoFileName)

		path, ok := videoPath(publicDir, req.VideoFileName)
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "Invalid video file name")
			return
		}

		deps := svc.CheckDependencies()
		if !deps.Ready {
			utils.RespondErrorWith(w, http.StatusInternalServerError, "Server dependencies not ready", map[string]interface{}{
				"issues": deps.Issues,
			})
			return
		}

		result, err := svc.TranscribeVideo(r.Context(), path)
		if errors.Is(err, services.ErrVideoNotFound) {
			utils.RespondError(w, http.StatusNotFound, fmt.Sprintf("Video file not found: %s", req.VideoFileName))
			return
		}
		if err != nil {
			log.Printf("❌ Transcription error: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":       true,
			"transcription": result,
			"message":       "Video transcribed successfully",
		})
	}
}

// VideoInfo reports size and modification time of a training video
// GET /api/video-info/{filename}
func VideoInfo(publicDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := chi.URLParam(r, "filename")
		path, ok := videoPath(publicDir, filename)
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "Invalid video file name")
			return
		}

		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			utils.RespondError(w, http.StatusNotFound, "Video file not found")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":       true,
			"filename":      filename,
			"size":          info.Size(),
			"sizeFormatted": fmt.Sprintf("%.2f MB", float64(info.Size())/1024/1024),
			"modified":      info.ModTime().UTC().Format(time.RFC3339),
			"exists":        true,
		})
	}
}

// Chat answers a question about a transcribed video
// POST /api/chat
func Chat(svc *services.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TranscribedText string                 `json:"transcribedText"`
			UserMessage     string                 `json:"userMessage"`
			ChatHistory     []services.ChatMessage `json:"chatHistory"`
		}
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		reply, err := svc.Chat(r.Context(), req.TranscribedText, req.UserMessage, req.ChatHistory)
		if errors.Is(err, services.ErrChatInput) {
			utils.RespondError(w, http.StatusBadRequest, "Transcribed text and user message are required")
			return
		}
		if err != nil {
			log.Printf("❌ Chat error: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		log.Println("✅ Chat response generated successfully")
		utils.RespondJSON(w, http.StatusOK, reply)
	}
}

// Health reports transcription pipeline readiness
// GET /api/health
func Health(svc *services.TranscriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":       "OK",
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
			"dependencies": svc.CheckDependencies(),
		}
		if cache := svc.Cache(); cache != nil {
			body["cache"] = cache.GetStats()
		}
		utils.RespondJSON(w, http.StatusOK, body)
	}
}
