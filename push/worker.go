package push

import (
	"crypto/sha256"
	"io"
	"net"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"classlink/crypto"
	"classlink/models"
)

const deliveryPath = "/push"

// maxDeliverySize bounds a single push body read.
const maxDeliverySize = 64 * 1024

// WorkerOptions wires a Worker.
type WorkerOptions struct {
	// Keys supplies the subscription key material; nil means deliveries
	// are treated as plaintext.
	Keys func() *crypto.SubscriptionKeys
	// Present receives each accepted payload.
	Present func(payload models.PushPayload)

	Logger *zap.Logger
}

// Worker is the client-side receiver of push deliveries: a loopback HTTP
// listener the subscription endpoint points at. Encrypted bodies are
// opened with the subscription keys; anything else is taken as plain text.
// Back-to-back duplicate deliveries are dropped.
type Worker struct {
	listener net.Listener
	server   *http.Server
	keys     func() *crypto.SubscriptionKeys
	present  func(models.PushPayload)
	logger   *zap.Logger

	mu         sync.Mutex
	lastDigest [sha256.Size]byte
	hasDigest  bool

	closeOnce sync.Once
}

// NewWorker binds the delivery listener on addr. The endpoint is live once
// Start runs.
func NewWorker(addr string, options WorkerOptions) (*Worker, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	keys := options.Keys
	if keys == nil {
		keys = func() *crypto.SubscriptionKeys { return nil }
	}
	present := options.Present
	if present == nil {
		present = func(models.PushPayload) {}
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	worker := &Worker{
		listener: listener,
		keys:     keys,
		present:  present,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(deliveryPath, worker.handleDelivery)
	worker.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return worker, nil
}

// Endpoint returns the delivery URL registered with the backend.
func (w *Worker) Endpoint() string {
	return "http://" + w.listener.Addr().String() + deliveryPath
}

// Start serves deliveries until Close. It blocks; run it on its own
// goroutine.
func (w *Worker) Start() error {
	err := w.server.Serve(w.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close stops the listener.
func (w *Worker) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.server.Close()
	})
	return err
}

func (w *Worker) handleDelivery(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxDeliverySize))
	if err != nil {
		w.logger.Warn("unreadable delivery", zap.Error(err))
		rw.WriteHeader(http.StatusBadRequest)
		return
	}

	if w.isDuplicate(body) {
		rw.WriteHeader(http.StatusNoContent)
		return
	}

	raw, ok := w.openDelivery(body, r.Header.Get("Content-Encoding"))
	if !ok {
		rw.WriteHeader(http.StatusBadRequest)
		return
	}

	w.present(models.DecodePushPayload(raw))
	rw.WriteHeader(http.StatusCreated)
}

// openDelivery unwraps one delivery body. An aes128gcm body must decrypt
// with the subscription keys; a body without that coding passes through
// as text.
func (w *Worker) openDelivery(body []byte, encoding string) ([]byte, bool) {
	if encoding == "aes128gcm" {
		keys := w.keys()
		if keys == nil {
			w.logger.Warn("dropping encrypted delivery without keys")
			return nil, false
		}
		raw, err := crypto.DecryptContent(keys, body)
		if err != nil {
			w.logger.Warn("dropping undecryptable delivery", zap.Error(err))
			return nil, false
		}
		return raw, true
	}

	if !utf8.Valid(body) {
		w.logger.Warn("dropping non-text delivery")
		return nil, false
	}
	return body, true
}

func (w *Worker) isDuplicate(body []byte) bool {
	digest := sha256.Sum256(body)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hasDigest && digest == w.lastDigest {
		return true
	}
	w.lastDigest = digest
	w.hasDigest = true
	return false
}
