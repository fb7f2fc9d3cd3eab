// Package webhook receives change notifications from the source's
// subscription service and dispatches them into the pipeline.
package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/northgate-labs/docsync/internal/core/domain"
	"github.com/northgate-labs/docsync/internal/core/ports/driving"
	"github.com/northgate-labs/docsync/internal/logger"
)

// itemResourceRe extracts the site, drive and item from a notification
// resource path.
var itemResourceRe = regexp.MustCompile(`sites/([^/]+)/drives/([^/]+)/items/([^/]+)`)

// driveResourceRe matches drive-level notifications that carry no item.
var driveResourceRe = regexp.MustCompile(`sites/([^/]+)/drives/([^/]+)`)

// notification is one change notification envelope entry.
type notification struct {
	ClientState    string `json:"clientState"`
	Resource       string `json:"resource"`
	SubscriptionID string `json:"subscriptionId"`
	ChangeType     string `json:"changeType"`
}

type notificationEnvelope struct {
	Value []notification `json:"value"`
}

// Handler serves the notification endpoint: the subscription validation
// handshake on one hand, change notifications on the other.
//
// Notifications are acknowledged immediately with 202 and processed in
// the background; the subscription service retries or drops endpoints
// that respond slowly.
type Handler struct {
	pipeline    driving.DocumentPipeline
	sync        driving.SyncOrchestrator
	clientState string
	log         *logger.Logger

	// dispatch runs a background task. Tests replace it to run inline.
	dispatch func(func())
}

// NewHandler creates a webhook handler. The clientState secret must
// match the value registered with the subscription.
func NewHandler(
	pipeline driving.DocumentPipeline,
	sync driving.SyncOrchestrator,
	clientState string,
	log *logger.Logger,
) *Handler {
	return &Handler{
		pipeline:    pipeline,
		sync:        sync,
		clientState: clientState,
		log:         log.With("adapter", "webhook"),
		dispatch:    func(task func()) { go task() },
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Subscription validation handshake: echo the token as plain text
	if token := r.URL.Query().Get("validationToken"); token != "" {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(token))
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var envelope notificationEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		h.log.Warn("malformed notification body", "error", err)
		http.Error(w, "invalid notification body", http.StatusBadRequest)
		return
	}

	for _, note := range envelope.Value {
		if note.ClientState != h.clientState {
			h.log.Warn("notification with invalid client state", "subscription_id", note.SubscriptionID)
			http.Error(w, "invalid client state", http.StatusForbidden)
			return
		}
	}

	for _, note := range envelope.Value {
		h.route(note)
	}

	w.WriteHeader(http.StatusAccepted)
}

// route dispatches one validated notification.
func (h *Handler) route(note notification) {
	if m := itemResourceRe.FindStringSubmatch(note.Resource); m != nil {
		ref := domain.ItemRef{SiteID: m[1], DriveID: m[2], ItemID: m[3]}
		if note.ChangeType == "deleted" {
			h.dispatch(func() {
				if err := h.pipeline.Delete(context.Background(), ref.DocumentID()); err != nil {
					h.log.Error("notification delete failed",
						"document_id", ref.DocumentID(),
						"error", err,
					)
				}
			})
			return
		}
		h.dispatch(func() {
			if err := h.pipeline.Process(context.Background(), ref); err != nil {
				h.log.Error("notification processing failed",
					"document_id", ref.DocumentID(),
					"error", err,
				)
			}
		})
		return
	}

	if m := driveResourceRe.FindStringSubmatch(note.Resource); m != nil {
		coll := domain.Collection{SiteID: m[1], DriveID: m[2]}
		h.dispatch(func() {
			if err := h.sync.Sync(context.Background(), coll.ID()); err != nil {
				h.log.Error("notification sync failed",
					"collection_id", coll.ID(),
					"error", err,
				)
			}
		})
		return
	}

	h.log.Debug("ignoring notification for unknown resource", "resource", note.Resource)
}
