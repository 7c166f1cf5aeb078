// Package export renders plans into downloadable documents and hands them to
// an artifact sink.
package export

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/course-emi/internal/metrics"
	"github.com/iwvelando/course-emi/internal/plan"
	"github.com/iwvelando/course-emi/internal/presentation"
	"github.com/iwvelando/course-emi/pkg/validation"
	"go.uber.org/zap"
)

// ErrNoSink is returned by Publish when no artifact sink is configured.
var ErrNoSink = errors.New("no artifact storage configured")

// Artifact is a rendered document.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Renderer turns a payload into a document of one format.
type Renderer interface {
	Format() string
	Render(ctx context.Context, payload presentation.Payload) (Artifact, error)
}

// Registry selects renderers by format name.
type Registry struct {
	renderers map[string]Renderer
}

// NewRegistry registers the given renderers, later ones replacing earlier
// ones of the same format.
func NewRegistry(renderers ...Renderer) *Registry {
	r := &Registry{renderers: make(map[string]Renderer, len(renderers))}
	for _, renderer := range renderers {
		r.renderers[renderer.Format()] = renderer
	}
	return r
}

// DefaultRegistry knows the xlsx, csv and pdf renderers.
func DefaultRegistry() *Registry {
	return NewRegistry(XLSXRenderer{}, CSVRenderer{}, PDFRenderer{})
}

// Lookup returns the renderer for format.
func (r *Registry) Lookup(format string) (Renderer, error) {
	renderer, ok := r.renderers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", validation.ErrUnsupportedExport, format)
	}
	return renderer, nil
}

// Formats lists the registered format names in sorted order.
func (r *Registry) Formats() []string {
	formats := make([]string, 0, len(r.renderers))
	for format := range r.renderers {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// StoredArtifact describes where a sink put an artifact.
type StoredArtifact struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Sink persists rendered artifacts and returns a URL they can be fetched from.
// id is the publish ID; the stored key must be derived from it.
type Sink interface {
	Store(ctx context.Context, id string, artifact Artifact) (StoredArtifact, error)
}

// Published is the outcome of Publish. ID is also part of the stored key.
type Published struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Service renders and optionally stores exports.
type Service struct {
	logger   *zap.Logger
	registry *Registry
	sink     Sink
	metrics  *metrics.Recorder
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSink stores published artifacts in sink.
func WithSink(sink Sink) ServiceOption {
	return func(s *Service) { s.sink = sink }
}

// WithRecorder counts renders in r.
func WithRecorder(r *metrics.Recorder) ServiceOption {
	return func(s *Service) { s.metrics = r }
}

// WithNow replaces the clock used to date file names.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates an export service. A nil registry uses DefaultRegistry.
func NewService(logger *zap.Logger, registry *Registry, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = DefaultRegistry()
	}
	s := &Service{logger: logger, registry: registry, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the renderer registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// HasSink reports whether Publish can store artifacts.
func (s *Service) HasSink() bool {
	return s.sink != nil
}

// Export renders result in the given format. Renderer failures are returned
// as is; nothing is retried.
func (s *Service) Export(ctx context.Context, result plan.Result, format string) (Artifact, error) {
	renderer, err := s.registry.Lookup(format)
	if err != nil {
		return Artifact{}, err
	}

	payload := presentation.ExportPayload(result, s.now())
	artifact, err := renderer.Render(ctx, payload)
	s.metrics.ExportRendered(format, err)
	if err != nil {
		s.logger.Error("failed to render export",
			zap.String("op", "export.Export"),
			zap.String("format", format),
			zap.Error(err),
		)
		return Artifact{}, fmt.Errorf("failed to render %s export: %w", format, err)
	}

	s.logger.Debug("rendered export",
		zap.String("op", "export.Export"),
		zap.String("format", format),
		zap.String("name", artifact.Name),
		zap.Int("bytes", len(artifact.Data)),
	)
	return artifact, nil
}

// Publish renders result and stores the artifact in the configured sink.
func (s *Service) Publish(ctx context.Context, result plan.Result, format string) (Published, error) {
	if s.sink == nil {
		return Published{}, ErrNoSink
	}

	artifact, err := s.Export(ctx, result, format)
	if err != nil {
		return Published{}, err
	}

	id := uuid.NewString()
	stored, err := s.sink.Store(ctx, id, artifact)
	if err != nil {
		s.logger.Error("failed to store export",
			zap.String("op", "export.Publish"),
			zap.String("id", id),
			zap.Error(err),
		)
		return Published{}, fmt.Errorf("failed to store export: %w", err)
	}

	s.logger.Info("published export",
		zap.String("op", "export.Publish"),
		zap.String("id", id),
		zap.String("key", stored.Key),
	)
	return Published{ID: id, Name: artifact.Name, URL: stored.URL}, nil
}
