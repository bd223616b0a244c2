package indexer

import (
	"bslnav/internal/models"
	"bslnav/internal/parser"
	"bslnav/internal/qdrant"
	"bslnav/internal/selection"
	"bslnav/internal/utils"
	"bslnav/internal/workspace"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	qdrantpb "github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	defaultCollectionName = "bslnav_default"
	collectionPrefix      = "bslnav_"
	NumWorkers            = 4
	BatchSize             = 32
)

// CollectionName returns the Qdrant collection name for a given project ID.
// If projectID is empty, the shared default collection is used.
func CollectionName(projectID string) string {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return defaultCollectionName
	}
	return fmt.Sprintf("%s%s", collectionPrefix, projectID)
}

// Store is the part of the vector database the indexer writes to.
type Store interface {
	EnsureCollection(ctx context.Context, name string, vectorSize uint64) error
	Upsert(ctx context.Context, collectionName string, points []*qdrantpb.PointStruct) error
	DeleteByFilter(ctx context.Context, collectionName string, filter *qdrantpb.Filter) error
}

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type Indexer struct {
	store      Store
	embeddings Embedder
	parsers    *parser.ParserFactory
	logger     zerolog.Logger
	projectID  string
	collection string
	root       string

	ensureMu sync.Mutex
	ensured  bool
}

func NewIndexer(store Store, emb Embedder, parsers *parser.ParserFactory, logger zerolog.Logger) *Indexer {
	return &Indexer{
		store:      store,
		embeddings: emb,
		parsers:    parsers,
		logger:     logger,
	}
}

// Collection returns the collection used by the last IndexProject call.
func (idx *Indexer) Collection() string {
	return idx.collection
}

func (idx *Indexer) IndexProject(ctx context.Context, rootPath string) error {
	normalizedRoot, err := utils.NormalizeProjectRoot(rootPath)
	if err != nil {
		return fmt.Errorf("failed to normalize project root: %w", err)
	}

	projectID, err := utils.ComputeProjectID(normalizedRoot)
	if err != nil {
		return fmt.Errorf("failed to compute project id: %w", err)
	}
	idx.projectID = projectID
	idx.collection = CollectionName(projectID)
	idx.root = normalizedRoot
	idx.ensured = false
	fmt.Printf("→ Project fingerprint: %s\n", projectID)
	fmt.Printf("→ Using collection: %s\n", idx.collection)

	files, err := utils.GetAllSourceFiles(normalizedRoot)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Found %d module files\n", len(files))

	if len(files) == 0 {
		fmt.Println("⚠ No module files found to index")
		return nil
	}

	// Load previous file hashes for incremental indexing.
	prevHashes, err := loadFileHashes(projectID)
	if err != nil {
		return fmt.Errorf("failed to load file hashes: %w", err)
	}
	prevHashes = canonicalizeHashKeys(prevHashes, normalizedRoot)

	currentHashes := make(map[string]string, len(files))
	var changedFiles []string

	for _, f := range files {
		hash, herr := hashFile(f)
		if herr != nil {
			fmt.Fprintf(os.Stderr, "✗ Failed to hash %s: %v\n", f, herr)
			continue
		}
		key := normalizeFilePath(f)
		currentHashes[key] = hash
		if prev, ok := prevHashes[key]; !ok || prev != hash {
			changedFiles = append(changedFiles, f)
		}
	}

	var deletedFiles []string
	for path := range prevHashes {
		if _, ok := currentHashes[path]; !ok {
			deletedFiles = append(deletedFiles, path)
		}
	}

	fmt.Printf("→ Incremental index: %d added/modified, %d deleted, %d total files\n", len(changedFiles), len(deletedFiles), len(files))

	if len(changedFiles) == 0 && len(deletedFiles) == 0 {
		fmt.Println("✓ No changes detected, index is already up to date")
		return nil
	}

	// Delete vectors for files that have been removed from the filesystem.
	for _, normalizedPath := range deletedFiles {
		displayPath := filepath.FromSlash(normalizedPath)
		if err := idx.deleteFilePoints(ctx, normalizedPath); err != nil {
			fmt.Fprintf(os.Stderr, "✗ Error deleting vectors for removed file %s: %v\n", displayPath, err)
			// Keep the old hash so the deletion is retried next run.
			currentHashes[normalizedPath] = prevHashes[normalizedPath]
		} else {
			fmt.Printf("✓ Deleted vectors for removed file %s\n", displayPath)
		}
	}

	// Index only added or modified files. A failed file loses its hash so the
	// next run picks it up again.
	var hashMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(NumWorkers)
	for _, f := range changedFiles {
		_, reindex := prevHashes[normalizeFilePath(f)]
		g.Go(func() error {
			if err := idx.processFile(gctx, f, reindex); err != nil {
				fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", f, err)
				hashMu.Lock()
				delete(currentHashes, normalizeFilePath(f))
				hashMu.Unlock()
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := saveFileHashes(idx.projectID, currentHashes); err != nil {
		return fmt.Errorf("failed to save file hashes: %w", err)
	}

	fmt.Println("✓ Indexing completed")
	return nil
}

func (idx *Indexer) processFile(ctx context.Context, path string, reindex bool) error {
	if idx.collection == "" {
		return fmt.Errorf("collection name is not set on indexer")
	}
	// Normalize path for consistent storage in Qdrant and stable deletion.
	normalizedPath := normalizeFilePath(path)

	// For modified files, clear any existing vectors for this file before
	// re-indexing so that removed methods do not leave stale points.
	if reindex {
		if err := idx.deleteFilePoints(ctx, normalizedPath); err != nil {
			fmt.Fprintf(os.Stderr, "✗ Error deleting existing vectors for %s: %v\n", path, err)
		}
	}

	p, err := idx.parsers.GetParserByFilePath(path)
	if err != nil {
		return nil
	}

	code, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	funcs, err := p.ExtractFunctions(path, code)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Error parsing %s: %v\n", path, err)
		return err
	}

	if len(funcs) == 0 {
		return nil
	}

	moduleName := idx.moduleName(path)
	idx.logger.Debug().
		Str("file", normalizedPath).
		Str("module", moduleName).
		Int("methods", len(funcs)).
		Msg("extracted methods")
	fmt.Printf("→ Processing %s (%d methods)\n", path, len(funcs))

	payloads := make([]models.MethodPayload, 0, len(funcs))
	contents := make([]string, 0, len(funcs))
	for _, fn := range funcs {
		payload := models.MethodPayload{
			FilePath:      normalizedPath,
			Language:      p.Language(),
			ModuleName:    moduleName,
			Configuration: selection.ConfigurationOf(moduleName),
			FunctionName:  fn.Name,
			Kind:          fn.NodeType,
			StartLine:     fn.StartLine,
			EndLine:       fn.EndLine,
			CodeHash:      utils.HashContent(fn.Content),
			Content:       fn.Content,
			Signature:     fn.Signature,
			Annotations:   fn.Annotations,
			Export:        fn.Export,
		}
		payloads = append(payloads, payload)
		contents = append(contents, EmbeddingText(payload))
	}

	vectors, err := idx.embedAll(ctx, contents)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Error embedding %s: %v\n", path, err)
		return err
	}
	if len(vectors) != len(payloads) || len(vectors[0]) == 0 {
		return fmt.Errorf("embedding returned %d vectors for %d methods in %s", len(vectors), len(payloads), path)
	}

	// Ensure Qdrant collection lazily using the actual embedding dimension so we
	// don't need a separate probe request.
	if err := idx.ensureCollection(ctx, uint64(len(vectors[0]))); err != nil {
		return err
	}

	points := make([]*qdrantpb.PointStruct, 0, len(payloads))
	for i, payload := range payloads {
		id := contentHashToPointID(payload.FilePath + "#" + payload.FunctionName + "#" + payload.CodeHash)
		points = append(points, &qdrantpb.PointStruct{
			Id: &qdrantpb.PointId{
				PointIdOptions: &qdrantpb.PointId_Num{
					Num: id,
				},
			},
			Vectors: &qdrantpb.Vectors{
				VectorsOptions: &qdrantpb.Vectors_Vector{
					Vector: &qdrantpb.Vector{
						Data: vectors[i],
					},
				},
			},
			Payload: qdrant.MethodToPayload(payload),
		})
	}

	if err := idx.store.Upsert(ctx, idx.collection, points); err != nil {
		fmt.Fprintf(os.Stderr, "✗ Error upserting %s: %v\n", path, err)
		return err
	}

	fmt.Printf("✓ Indexed %s (%d vectors)\n", path, len(points))
	return nil
}

func (idx *Indexer) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += BatchSize {
		end := min(start+BatchSize, len(texts))
		batch, err := idx.embeddings.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (idx *Indexer) ensureCollection(ctx context.Context, vectorSize uint64) error {
	idx.ensureMu.Lock()
	defer idx.ensureMu.Unlock()
	if idx.ensured {
		return nil
	}
	if err := idx.store.EnsureCollection(ctx, idx.collection, vectorSize); err != nil {
		return err
	}
	idx.ensured = true
	return nil
}

// moduleName derives the dotted module name of a file from its path inside
// the configuration project, falling back to the indexed root.
func (idx *Indexer) moduleName(path string) string {
	root, ok := workspace.FindProjectRoot(path)
	if !ok {
		root = idx.root
	}
	rel, err := workspace.RelativePath(root, path)
	if err != nil {
		return ""
	}
	return selection.ModuleNameFromPath(rel)
}

// EmbeddingText is the text embedded for a method: its metadata followed by
// its source, so that name and module queries match as well as code.
func EmbeddingText(m models.MethodPayload) string {
	metaLines := []string{
		fmt.Sprintf("language: %s", m.Language),
		fmt.Sprintf("function: %s", m.FunctionName),
		fmt.Sprintf("kind: %s", m.Kind),
	}
	if m.ModuleName != "" {
		metaLines = append(metaLines, fmt.Sprintf("module: %s", m.ModuleName))
	}
	if m.Configuration != "" {
		metaLines = append(metaLines, fmt.Sprintf("configuration: %s", m.Configuration))
	}
	if m.Signature != "" {
		metaLines = append(metaLines, fmt.Sprintf("signature: %s", m.Signature))
	}
	if len(m.Annotations) > 0 {
		metaLines = append(metaLines, fmt.Sprintf("annotations: %s", strings.Join(m.Annotations, ", ")))
	}
	if m.Export {
		metaLines = append(metaLines, "export: true")
	}
	return fmt.Sprintf("%s\n\n%s", strings.Join(metaLines, "\n"), m.Content)
}

// contentHashToPointID converts a key string into a 64-bit numeric ID that is
// accepted by Qdrant's `PointId_Num` field. We take the first 8 bytes of its
// SHA-256 and interpret them as a big-endian uint64.
func contentHashToPointID(key string) uint64 {
	h := sha256.Sum256([]byte(key))
	return binary.BigEndian.Uint64(h[:8])
}

// hashFile computes a stable hash for a file's entire contents. It is used to
// detect added/modified files for incremental indexing.
func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return utils.HashContent(string(data)), nil
}

func normalizeFilePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}

	abs := path
	if !filepath.IsAbs(abs) {
		if a, err := filepath.Abs(abs); err == nil {
			abs = a
		}
	}
	abs = filepath.Clean(abs)
	normalized := filepath.ToSlash(abs)
	if runtime.GOOS == "windows" {
		normalized = strings.ToLower(normalized)
	}
	return normalized
}

func canonicalizeHashKeys(hashes map[string]string, normalizedRoot string) map[string]string {
	if len(hashes) == 0 {
		return hashes
	}
	root := strings.TrimSpace(normalizedRoot)
	if root == "" {
		return hashes
	}
	root = filepath.Clean(root)
	if runtime.GOOS == "windows" {
		root = strings.ToLower(root)
	}

	out := make(map[string]string, len(hashes))
	for k, v := range hashes {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		p := filepath.FromSlash(key)
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		out[normalizeFilePath(p)] = v
	}
	return out
}

// loadFileHashes loads the last-seen file hash map from disk. It is stored as
// a JSON file under ~/.bslnav scoped by the project ID.
func loadFileHashes(projectID string) (map[string]string, error) {
	statePath, err := fileHashStatePath(projectID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	var hashes map[string]string
	if err := json.Unmarshal(data, &hashes); err != nil {
		return nil, err
	}
	if hashes == nil {
		hashes = make(map[string]string)
	}
	return hashes, nil
}

// saveFileHashes persists the current file hash map so that the next indexing
// run can cheaply detect which files have changed.
func saveFileHashes(projectID string, hashes map[string]string) error {
	statePath, err := fileHashStatePath(projectID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(hashes, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(statePath, data, 0o644)
}

func fileHashStatePath(projectID string) (string, error) {
	stateDir, err := utils.UserStateDir()
	if err != nil {
		return "", err
	}
	if projectID == "" {
		projectID = "default"
	}
	fileName := fmt.Sprintf("%s_file_hashes.json", projectID)
	return filepath.Join(stateDir, fileName), nil
}

// ClearProjectState removes any local on-disk state associated with a project.
// Currently this is the file-hash map used for incremental indexing.
func ClearProjectState(projectID string) error {
	statePath, err := fileHashStatePath(projectID)
	if err != nil {
		return err
	}
	if err := os.Remove(statePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}

// deleteFilePoints removes all vectors in Qdrant whose payload file_path
// matches the given path.
func (idx *Indexer) deleteFilePoints(ctx context.Context, path string) error {
	if idx.collection == "" {
		return fmt.Errorf("collection name is not set on indexer")
	}
	return idx.store.DeleteByFilter(ctx, idx.collection, qdrant.FileFilter(path))
}
