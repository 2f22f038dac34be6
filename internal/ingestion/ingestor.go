// Package ingestion resolves RFP documents from local stores and remote
// locations and reduces them to the views the matching and pricing stages use.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rfp-agent/backend/internal/metrics"
	"github.com/rfp-agent/backend/internal/remote"
	"github.com/rfp-agent/backend/internal/rfp"
	"github.com/rfp-agent/backend/pkg/logger"
	"github.com/rfp-agent/backend/pkg/utils"
)

var ErrNoDocumentFound = errors.New("no RFP document found")

// DocumentStore lists locally held RFP documents in a stable order.
type DocumentStore interface {
	ListDocuments(ctx context.Context) ([]rfp.Document, error)
}

// Fetcher retrieves a remote resource.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (*remote.Resource, error)
}

type contentKind int

const (
	kindUnknown contentKind = iota
	kindStructured
	kindDocument
)

var extensionTypes = map[string]string{
	".pdf":   "application/pdf",
	".html":  "text/html",
	".htm":   "text/html",
	".xhtml": "application/xhtml+xml",
	".txt":   "text/plain",
}

type Ingestor struct {
	store        DocumentStore
	fetcher      Fetcher
	fetchTimeout time.Duration
	extractors   map[string]TextExtractor
}

// NewIngestor builds an ingestor over store. fetcher may be nil, in which case
// unmatched locations resolve to placeholders. HTML and plain text extractors
// are registered by default.
func NewIngestor(store DocumentStore, fetcher Fetcher, fetchTimeout time.Duration) *Ingestor {
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}

	i := &Ingestor{
		store:        store,
		fetcher:      fetcher,
		fetchTimeout: fetchTimeout,
		extractors:   make(map[string]TextExtractor),
	}
	i.RegisterExtractor("text/html", HTMLExtractor{})
	i.RegisterExtractor("application/xhtml+xml", HTMLExtractor{})
	i.RegisterExtractor("text/plain", PlainTextExtractor{})
	return i
}

// RegisterExtractor sets the text extractor used for mediaType, replacing any
// previous one.
func (i *Ingestor) RegisterExtractor(mediaType string, extractor TextExtractor) {
	i.extractors[strings.ToLower(mediaType)] = extractor
}

// ResolveDefault returns the first locally stored RFP.
func (i *Ingestor) ResolveDefault(ctx context.Context) (*rfp.Document, error) {
	docs, err := i.listDocuments(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoDocumentFound
	}

	doc := docs[0]
	logger.Info("Resolved default RFP", zap.String("name", doc.Name), zap.String("rfp_id", doc.RFP.ID.String()))
	return &doc, nil
}

func (i *Ingestor) listDocuments(ctx context.Context) ([]rfp.Document, error) {
	if i.store == nil {
		return nil, nil
	}
	docs, err := i.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// Discover resolves every source location to exactly one record, in input
// order. It never fails: unresolvable locations yield a placeholder with a
// nil RFP.
func (i *Ingestor) Discover(ctx context.Context, sources []string) []rfp.DiscoveryRecord {
	docs, err := i.listDocuments(ctx)
	if err != nil {
		logger.Warn("Local store unavailable for discovery", zap.Error(err))
		docs = nil
	}

	records := make([]rfp.DiscoveryRecord, 0, len(sources))
	for _, src := range sources {
		rec := i.discoverOne(ctx, docs, strings.TrimSpace(src))
		if rec.DueDate == "" {
			rec.DueDate = "unknown"
		}
		records = append(records, rec)
	}

	logger.Info("Discovery completed", zap.Int("sources", len(sources)), zap.Int("records", len(records)))
	return records
}

func (i *Ingestor) discoverOne(ctx context.Context, docs []rfp.Document, src string) rfp.DiscoveryRecord {
	if doc, ok := matchByFilename(docs, src); ok {
		metrics.DiscoveryRecords.WithLabelValues("local").Inc()
		return localRecord(doc)
	}
	if doc, ok := matchByIdentifier(docs, src); ok {
		metrics.DiscoveryRecords.WithLabelValues("local").Inc()
		return localRecord(doc)
	}

	base := baseName(src)

	if i.fetcher == nil {
		return placeholder("Remote resource (no-network): "+base, src)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, i.fetchTimeout)
	defer cancel()

	res, err := i.fetcher.Fetch(fetchCtx, src)
	if err != nil {
		logger.Warn("Discovery fetch failed", zap.String("source", src), zap.Error(err))
		return placeholder("Remote resource (fetch failed): "+base, src)
	}

	kind, mediaType := i.classify(res, src)
	switch kind {
	case kindStructured:
		doc, err := rfp.Parse(res.Body)
		if err != nil {
			logger.Warn("Remote JSON did not parse", zap.String("source", src), zap.Error(err))
			return placeholder("Remote JSON (couldn't parse): "+base, src)
		}
		title := doc.Title
		if title == "" {
			title = "remote JSON RFP"
		}
		metrics.DiscoveryRecords.WithLabelValues("remote_structured").Inc()
		return rfp.DiscoveryRecord{Title: title, DueDate: doc.DueDate, Source: src, RFP: doc}

	case kindDocument:
		extractor, ok := i.extractors[mediaType]
		if !ok {
			return placeholder("Remote document (no text extractor): "+base, src)
		}
		text, err := extractor.Extract(res.Body)
		if err != nil {
			logger.Warn("Text extraction failed", zap.String("source", src), zap.String("media_type", mediaType), zap.Error(err))
			return placeholder("Remote document (couldn't parse): "+base, src)
		}
		doc := documentFromText(text, src, base)
		metrics.DiscoveryRecords.WithLabelValues("remote_document").Inc()
		return rfp.DiscoveryRecord{Title: doc.Title, DueDate: doc.DueDate, Source: src, RFP: doc}
	}

	return placeholder("Remote resource: "+base, src)
}

func matchByFilename(docs []rfp.Document, src string) (rfp.Document, bool) {
	base := strings.ToLower(baseName(src))
	if base == "" {
		return rfp.Document{}, false
	}
	for _, doc := range docs {
		if strings.Contains(strings.ToLower(doc.Name), base) {
			return doc, true
		}
	}
	return rfp.Document{}, false
}

func matchByIdentifier(docs []rfp.Document, src string) (rfp.Document, bool) {
	low := strings.ToLower(src)
	if low == "" {
		return rfp.Document{}, false
	}
	for _, doc := range docs {
		keys := []string{
			doc.Name,
			strings.TrimSuffix(doc.Name, path.Ext(doc.Name)),
			doc.RFP.ID.String(),
			doc.RFP.Title,
		}
		for _, k := range keys {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" && strings.Contains(low, k) {
				return doc, true
			}
		}
	}
	return rfp.Document{}, false
}

func localRecord(doc rfp.Document) rfp.DiscoveryRecord {
	r := doc.RFP
	title := r.Title
	if title == "" {
		title = doc.Name
	}
	return rfp.DiscoveryRecord{
		Title:   title,
		DueDate: r.DueDate,
		Source:  "local:" + doc.Name,
		RFP:     &r,
	}
}

func placeholder(title, src string) rfp.DiscoveryRecord {
	metrics.DiscoveryRecords.WithLabelValues("placeholder").Inc()
	return rfp.DiscoveryRecord{Title: title, DueDate: "unknown", Source: src}
}

func baseName(src string) string {
	p := src
	if u, err := url.Parse(src); err == nil && u.Host != "" {
		p = u.Path
	}
	b := path.Base(p)
	if b == "." || b == "/" {
		return ""
	}
	return b
}

// classify decides how a fetched resource is read, preferring the declared
// content type and falling back to the location's extension.
func (i *Ingestor) classify(res *remote.Resource, src string) (contentKind, string) {
	mediaType := ""
	if res.ContentType != "" {
		if mt, _, err := mime.ParseMediaType(res.ContentType); err == nil {
			mediaType = strings.ToLower(mt)
		}
	}

	if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
		return kindStructured, mediaType
	}
	if _, ok := i.extractors[mediaType]; ok && mediaType != "" {
		return kindDocument, mediaType
	}
	for _, known := range extensionTypes {
		if mediaType == known {
			return kindDocument, mediaType
		}
	}

	ext := strings.ToLower(path.Ext(baseName(src)))
	if ext == ".json" {
		return kindStructured, "application/json"
	}
	if mt, ok := extensionTypes[ext]; ok {
		return kindDocument, mt
	}

	return kindUnknown, mediaType
}

// documentFromText builds an RFP from extracted text using the field and
// scope heuristics.
func documentFromText(text, src, base string) *rfp.RFP {
	title := ExtractField(text, titleLabels)
	if title == "" {
		title = "Remote document: " + base
	}
	due := ExtractField(text, dueLabels)
	if due == "" {
		due = "unknown"
	}

	return &rfp.RFP{
		ID:      rfp.ID("REMOTE-" + utils.ShortHash(src, 8)),
		Title:   title,
		DueDate: due,
		Scope:   ExtractScope(text),
		Tests:   splitTests(ExtractField(text, testLabels)),
	}
}
