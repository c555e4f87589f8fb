package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deepindex/codechunk/internal/cache"
	"github.com/deepindex/codechunk/internal/embeddings"
	"github.com/deepindex/codechunk/internal/models"
	"github.com/deepindex/codechunk/internal/vectordb"
	"github.com/deepindex/codechunk/pkg/config"
	"github.com/deepindex/codechunk/pkg/pathutil"
)

// Indexer orchestrates the two-pass indexing pipeline: scan, classify every
// file into compute/add_tag/delete, chunk and embed the compute set, upsert
// it, then run the Cross-File Resolver over the whole batch and re-upsert
// the back-filled metadata.
type Indexer struct {
	config           *config.Config
	scanner          *Scanner
	chunker          *Chunker
	hashManager      *cache.FileHashManager
	embeddingsClient *embeddings.Client
	batcher          *embeddings.Batcher
	vectorDB         *vectordb.Client
	jobs             map[string]*models.IndexJob
	jobsMux          sync.RWMutex
}

// NewIndexer creates a new code indexer
func NewIndexer(cfg *config.Config) (*Indexer, error) {
	hashManager, err := cache.NewFileHashManager(cfg.Cache.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to create hash manager: %w", err)
	}

	scanner := NewScanner(&cfg.Indexing, cfg.Ignore.Patterns)

	chunker, err := NewChunker(&cfg.Chunking)
	if err != nil {
		return nil, fmt.Errorf("failed to create chunker: %w", err)
	}

	embeddingsClient := embeddings.NewClient(&cfg.Embeddings)

	batcher := embeddings.NewBatcher(
		embeddingsClient,
		cfg.Embeddings.BatchSize,
		cfg.Indexing.ParallelWorkers,
	)

	vectorDB, err := vectordb.NewClient(&cfg.VectorDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector DB client: %w", err)
	}

	ctx := context.Background()
	if err := vectorDB.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize vector DB: %w", err)
	}

	return &Indexer{
		config:           cfg,
		scanner:          scanner,
		chunker:          chunker,
		hashManager:      hashManager,
		embeddingsClient: embeddingsClient,
		batcher:          batcher,
		vectorDB:         vectorDB,
		jobs:             make(map[string]*models.IndexJob),
	}, nil
}

// Index indexes a repository
func (idx *Indexer) Index(repoPath string, forceReindex bool) (*models.IndexJob, error) {
	job := &models.IndexJob{
		ID:        fmt.Sprintf("job-%d", time.Now().UnixNano()),
		RepoPath:  repoPath,
		Status:    models.IndexStatusRunning,
		StartTime: time.Now(),
	}

	idx.jobsMux.Lock()
	idx.jobs[job.ID] = job
	idx.jobsMux.Unlock()

	if idx.config.Indexing.Background {
		go idx.doIndex(job, forceReindex)
	} else {
		idx.doIndex(job, forceReindex)
	}

	return job, nil
}

// reportProgress logs a ProgressRecord as JSON in its {desc, status,
// progress} shape. The record is only logged; it is not passed to any caller.
func (idx *Indexer) reportProgress(job *models.IndexJob, desc string, status models.ProgressStatus, progress float64) {
	record := models.ProgressRecord{Desc: desc, Status: status, Progress: progress}
	raw, err := json.Marshal(record)
	if err != nil {
		log.Printf("[%s] %s (progress marshal failed: %v)", job.ID, desc, err)
		return
	}
	log.Printf("[%s] %s", job.ID, raw)
}

// classify splits every file the scanner found, plus every previously
// tracked path, into the three disjoint work categories the resolver-facing
// pipeline processes: compute (new or changed content), add_tag (unchanged,
// nothing to do but acknowledge), and delete (tracked before, absent now).
func (idx *Indexer) classify(job *models.IndexJob, files []string, forceReindex bool) (compute []models.PathAndCacheKey, addTag []models.PathAndCacheKey, del []string) {
	seen := make(map[string]bool, len(files))
	incremental := idx.config.Indexing.Incremental && !forceReindex

	for _, path := range files {
		seen[path] = true

		digest, err := idx.hashManager.Digest(path)
		if err != nil {
			log.Printf("[%s] Warning: failed to hash %s: %v", job.ID, path, err)
			continue
		}

		if incremental {
			needsReindex, err := idx.hashManager.NeedsReindex(path)
			if err != nil {
				log.Printf("[%s] Warning: failed to check hash for %s: %v", job.ID, path, err)
			} else if !needsReindex {
				addTag = append(addTag, models.PathAndCacheKey{Path: path, CacheKey: digest})
				continue
			}
		}

		compute = append(compute, models.PathAndCacheKey{Path: path, CacheKey: digest})
	}

	if idx.config.Indexing.Incremental {
		for _, tracked := range idx.hashManager.TrackedPaths() {
			if !seen[tracked] {
				del = append(del, tracked)
			}
		}
	}

	return compute, addTag, del
}

// doIndex performs the actual indexing
func (idx *Indexer) doIndex(job *models.IndexJob, forceReindex bool) {
	defer func() {
		job.EndTime = time.Now()
	}()

	log.Printf("[%s] Starting indexing for %s", job.ID, job.RepoPath)

	if idx.config.Indexing.Incremental {
		if err := idx.hashManager.Load(job.RepoPath); err != nil {
			log.Printf("[%s] Warning: Failed to load hash cache: %v", job.ID, err)
		}
	}

	log.Printf("[%s] Scanning repository...", job.ID)
	scanResult, err := idx.scanner.Scan(job.RepoPath)
	if err != nil {
		job.Status = models.IndexStatusFailed
		job.Error = fmt.Sprintf("scan failed: %v", err)
		log.Printf("[%s] Scan failed: %v", job.ID, err)
		return
	}

	compute, addTag, del := idx.classify(job, scanResult.Files, forceReindex)
	job.FilesTotal = len(compute) + len(addTag)
	log.Printf("[%s] Classified %d to compute, %d unchanged, %d to delete", job.ID, len(compute), len(addTag), len(del))

	for _, path := range del {
		rel := pathutil.Relativize(job.RepoPath, path)
		if err := idx.vectorDB.DeleteByPath(context.Background(), job.RepoPath, rel); err != nil {
			log.Printf("[%s] Warning: failed to delete %s: %v", job.ID, rel, err)
			continue
		}
		idx.hashManager.Remove(path)
		idx.reportProgress(job, path, models.ProgressSuccess, 1.0)
	}

	for _, item := range addTag {
		idx.reportProgress(job, item.Path, models.ProgressSuccess, 1.0)
	}
	job.FilesIndexed += len(addTag)

	allChunks := idx.processComputeSet(job, compute)
	job.ChunksTotal = len(allChunks)
	log.Printf("[%s] Generated %d chunks from %d files", job.ID, len(allChunks), len(compute))

	if len(allChunks) > 0 {
		idx.resolveAndReupsert(job, allChunks)
	}

	if idx.config.Indexing.Incremental {
		if err := idx.hashManager.Save(); err != nil {
			log.Printf("[%s] Warning: Failed to save hash cache: %v", job.ID, err)
			job.Status = models.IndexStatusFailed
			job.Error = fmt.Sprintf("Cache save failed: %v. Chunks are stored but cache is inconsistent. Run with force_reindex=true to fix.", err)
			return
		}
	}

	job.Status = models.IndexStatusCompleted
	job.EndTime = time.Now()
	log.Printf("[%s] Indexing completed successfully in %v", job.ID, time.Since(job.StartTime))
}

// processComputeSet chunks, embeds and upserts every file in the compute
// set using a worker-pool pattern, and returns the chunks it stored
// (embeddings populated) so a second pass can resolve cross-file metadata.
func (idx *Indexer) processComputeSet(job *models.IndexJob, compute []models.PathAndCacheKey) []*models.Chunk {
	numWorkers := idx.config.Indexing.ParallelWorkers
	if numWorkers <= 0 {
		numWorkers = 4
	}

	workChan := make(chan models.PathAndCacheKey, len(compute))
	for _, item := range compute {
		workChan <- item
	}
	close(workChan)

	type fileResult struct {
		relPath string
		digest  string
		chunks  []models.Chunk
	}
	resultChan := make(chan fileResult, numWorkers*2)

	var processedFiles int64
	var wg sync.WaitGroup

	log.Printf("[%s] Starting %d workers for parallel processing", job.ID, numWorkers)
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for item := range workChan {
				chunks, err := idx.chunker.ChunkFile(item.Path, item.CacheKey)
				if err != nil {
					log.Printf("[%s] Worker %d: Warning: failed to chunk %s: %v", job.ID, workerID, item.Path, err)
					idx.reportProgress(job, item.Path, models.ProgressError, 0)
					idx.bumpProgress(job, &processedFiles)
					continue
				}

				embedded, err := idx.batcher.ProcessChunks(chunks)
				if err != nil {
					log.Printf("[%s] Worker %d: Warning: embedding failed for %s: %v", job.ID, workerID, item.Path, err)
					idx.reportProgress(job, item.Path, models.ProgressError, 0)
					idx.bumpProgress(job, &processedFiles)
					continue
				}

				relPath := pathutil.Relativize(job.RepoPath, item.Path)
				if err := idx.vectorDB.UpsertChunks(context.Background(), job.RepoPath, relPath, item.CacheKey, embedded); err != nil {
					log.Printf("[%s] Worker %d: Warning: upsert failed for %s: %v", job.ID, workerID, item.Path, err)
					idx.reportProgress(job, item.Path, models.ProgressError, 0)
					idx.bumpProgress(job, &processedFiles)
					continue
				}

				if idx.config.Indexing.Incremental {
					if err := idx.hashManager.Update(item.Path, len(embedded)); err != nil {
						log.Printf("[%s] Warning: failed to update hash for %s: %v", job.ID, item.Path, err)
					}
				}

				resultChan <- fileResult{relPath: relPath, digest: item.CacheKey, chunks: embedded}
				idx.reportProgress(job, item.Path, models.ProgressSuccess, 1.0)
				idx.bumpProgress(job, &processedFiles)
			}
		}(i)
	}

	var allChunks []*models.Chunk
	var chunksMux sync.Mutex
	done := make(chan struct{})
	go func() {
		for r := range resultChan {
			chunksMux.Lock()
			for i := range r.chunks {
				c := r.chunks[i]
				c.FilePath = r.relPath
				c.Digest = r.digest
				allChunks = append(allChunks, &c)
			}
			chunksMux.Unlock()
		}
		close(done)
	}()

	wg.Wait()
	close(resultChan)
	<-done

	return allChunks
}

func (idx *Indexer) bumpProgress(job *models.IndexJob, processedFiles *int64) {
	current := atomic.AddInt64(processedFiles, 1)
	job.FilesIndexed = int(current)
	if job.FilesTotal > 0 {
		job.Progress = float64(current) / float64(job.FilesTotal)
	}
}

// resolveAndReupsert runs the Cross-File Resolver over the whole compute
// batch and re-upserts each affected file's chunks so the stored payload
// carries the back-filled referenced_by/subclasses/dependencies/dependents
// fields. Embeddings are reused unchanged: only metadata differs.
func (idx *Indexer) resolveAndReupsert(job *models.IndexJob, chunks []*models.Chunk) {
	resolver := NewResolver(job.RepoPath)
	resolver.Resolve(chunks)

	byPath := make(map[string][]models.Chunk)
	digestByPath := make(map[string]string)
	for _, c := range chunks {
		byPath[c.FilePath] = append(byPath[c.FilePath], *c)
		digestByPath[c.FilePath] = c.Digest
	}

	ctx := context.Background()
	for path, fileChunks := range byPath {
		if err := idx.vectorDB.UpsertChunks(ctx, job.RepoPath, path, digestByPath[path], fileChunks); err != nil {
			log.Printf("[%s] Warning: failed to re-upsert resolved metadata for %s: %v", job.ID, path, err)
		}
	}
}

// GetJob returns a job by ID
func (idx *Indexer) GetJob(jobID string) (*models.IndexJob, error) {
	idx.jobsMux.RLock()
	defer idx.jobsMux.RUnlock()

	job, ok := idx.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	return job, nil
}

// GetRepoIndex returns index statistics for a repository. The vector store
// is the source of truth for the chunk count; the hash cache supplies the
// file count and the last-indexed time.
func (idx *Indexer) GetRepoIndex(repoPath string) (*models.RepoIndex, error) {
	idx.jobsMux.RLock()
	for _, job := range idx.jobs {
		if job.RepoPath == repoPath && job.Status == models.IndexStatusRunning {
			idx.jobsMux.RUnlock()
			return &models.RepoIndex{
				RepoPath:    repoPath,
				TotalFiles:  job.FilesIndexed,
				TotalChunks: job.ChunksTotal,
				Languages:   make(map[string]int),
				LastIndexed: job.StartTime,
				Status:      models.IndexStatusRunning,
			}, nil
		}
	}
	idx.jobsMux.RUnlock()

	ctx := context.Background()
	stats, err := idx.vectorDB.Stats(ctx, repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}

	var lastIndexed time.Time
	var totalFiles int
	if err := idx.hashManager.Load(repoPath); err == nil {
		hashStats := idx.hashManager.GetStats()
		if files, ok := hashStats["total_files"].(int); ok {
			totalFiles = files
		}
		if updated, ok := hashStats["updated_at"].(time.Time); ok {
			lastIndexed = updated
		}
	}

	if stats.TotalChunks == 0 && totalFiles == 0 {
		return &models.RepoIndex{
			RepoPath:    repoPath,
			TotalFiles:  0,
			TotalChunks: 0,
			Languages:   make(map[string]int),
			LastIndexed: time.Time{},
			Status:      "not_indexed",
		}, nil
	}

	stats.TotalFiles = totalFiles
	stats.LastIndexed = lastIndexed
	return stats, nil
}

// ClearCache clears the cache for a repository
func (idx *Indexer) ClearCache(repoPath string) error {
	return idx.hashManager.Clear(repoPath)
}

