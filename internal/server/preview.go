package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	mdpress "github.com/mdpress/mdpress"
)

// previewDebounce coalesces keystroke bursts into one render.
const previewDebounce = 300 * time.Millisecond

// previewRenderTimeout bounds a single preview render.
const previewRenderTimeout = 20 * time.Second

// upgrader accepts any origin; the editor may be served from disk.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1 << 20,
	WriteBufferSize: 1 << 20,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// previewRequest is one editor update pushed over the socket.
type previewRequest struct {
	Markdown   string `json:"markdown"`
	FirstPage  int    `json:"first_numbered_page"`
	FirstValue int    `json:"first_number_value"`
}

// previewResponse carries the rendered pages back to the editor.
type previewResponse struct {
	HTML      string             `json:"html,omitempty"`
	PageCount int                `json:"page_count,omitempty"`
	TOC       []mdpress.TOCEntry `json:"toc,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// handlePreview upgrades to a websocket and streams paginated HTML back
// for every (debounced) markdown update. Only the latest pending update
// is rendered; intermediate keystrokes are dropped.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("preview upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates := make(chan previewRequest, 1)
	readErr := make(chan error, 1)

	go func() {
		for {
			var req previewRequest
			if err := conn.ReadJSON(&req); err != nil {
				readErr <- err
				return
			}
			// Keep only the newest update.
			select {
			case <-updates:
			default:
			}
			updates <- req
		}
	}()

	var (
		pending previewRequest
		dirty   bool
		timer   = time.NewTimer(previewDebounce)
	)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("preview read failed", zap.Error(err))
			}
			return
		case req := <-updates:
			pending = req
			if dirty {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			}
			dirty = true
			timer.Reset(previewDebounce)
		case <-timer.C:
			if !dirty {
				continue
			}
			dirty = false
			resp := s.renderPreview(r.Context(), pending)
			if err := conn.WriteJSON(resp); err != nil {
				s.log.Debug("preview write failed", zap.Error(err))
				return
			}
		}
	}
}

// renderPreview runs the HTML-only pipeline for one update.
func (s *Server) renderPreview(ctx context.Context, req previewRequest) previewResponse {
	conv, err := s.pool.Acquire()
	if err != nil {
		return previewResponse{Error: err.Error()}
	}
	defer s.pool.Release(conv)

	ctx, cancel := context.WithTimeout(ctx, previewRenderTimeout)
	defer cancel()

	result, err := conv.Convert(ctx, mdpress.Input{
		Markdown:  req.Markdown,
		Numbering: mdpress.Numbering{FirstPage: req.FirstPage, FirstValue: req.FirstValue},
		TOC:       &mdpress.TOC{},
		HTMLOnly:  true,
	})
	if err != nil {
		return previewResponse{Error: err.Error()}
	}

	return previewResponse{
		HTML:      string(result.HTML),
		PageCount: result.PageCount,
		TOC:       result.TOC,
	}
}
