package scan

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/cache"
	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/shared"
	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/worker"
)

const defaultDecodeWorkers = 4

type Scanner interface {
	// scan the given files / directories and write the csv report
	Scan(paths []string) (Summary, error)
}

// totals reported after a scan completes
type Summary struct {
	FilesScanned    int
	CandidatesFound int
	UniqueMatches   int
	CacheHits       int32
}

type _Scanner struct {
	ctx          context.Context
	outputConfig worker.OutputConfiguration // report destination
	minEntropy   float64                    // entropy threshold for key id candidates
	numWorkers   int                        // decode worker pool size
	resultsCache cache.DecodeResultsCache
}

type ScannerConfig struct {
	Ctx          context.Context
	OutputConfig worker.OutputConfiguration
	MinEntropy   float64 // zero disables entropy filtering
	NumWorkers   int     // defaults to defaultDecodeWorkers
}

func NewScanner(config ScannerConfig) (Scanner, error) {
	if config.Ctx == nil {
		config.Ctx = context.Background()
		log.Println("context is nil, setting to empty background context")
	}
	if config.OutputConfig.Filename == "" {
		return nil, errors.New("invalid output configuration. filename is empty")
	}
	if len(config.OutputConfig.Headers) == 0 {
		config.OutputConfig.Headers = shared.ReportHeaders
	}
	if config.MinEntropy < 0 {
		return nil, errors.New("minimum entropy cannot be negative")
	}
	if config.NumWorkers < 0 {
		return nil, errors.New("number of workers cannot be negative")
	}
	if config.NumWorkers == 0 {
		config.NumWorkers = defaultDecodeWorkers
	}

	return &_Scanner{
		ctx:          config.Ctx,
		outputConfig: config.OutputConfig,
		minEntropy:   config.MinEntropy,
		numWorkers:   config.NumWorkers,
		resultsCache: cache.NewDecodeResultsCache(),
	}, nil
}

// Scan walks the given paths, extracts access key id and iam arn candidates
// from every regular file, resolves them through the decode worker pool and
// writes one csv record per finding.
func (s *_Scanner) Scan(paths []string) (Summary, error) {
	if len(paths) == 0 {
		return Summary{}, errors.New("no paths to scan")
	}

	var (
		decodeWg          = new(sync.WaitGroup)
		csvWg             = new(sync.WaitGroup)
		decodeRequestChan = make(chan interface{}, 100)
		csvRequestChan    = make(chan interface{}, 100)
		errorChan         = make(chan error, 100)
	)

	// csv report worker, sink of the pipeline
	_, err := worker.NewCSVWorker(worker.CsvWorkerConfig{
		WorkerConfig: worker.WorkerConfig{
			Ctx:          s.ctx,
			Id:           "csv-report-worker",
			Wg:           csvWg,
			RequestChan:  csvRequestChan,
			ErrorChan:    errorChan,
			ResultsCache: s.resultsCache,
		},
		OutputConfig: s.outputConfig,
	})
	if err != nil {
		return Summary{}, err
	}

	// decode worker pool feeding the csv worker
	for i := 0; i < s.numWorkers; i++ {
		_, err := worker.NewDecodeWorker(worker.DecodeWorkerConfig{
			WorkerConfig: worker.WorkerConfig{
				Ctx:          s.ctx,
				Id:           "decode-worker-" + strconv.Itoa(i),
				Wg:           decodeWg,
				RequestChan:  decodeRequestChan,
				ErrorChan:    errorChan,
				ResultsCache: s.resultsCache,
			},
			CsvRequestChan: csvRequestChan,
			MinEntropy:     s.minEntropy,
		})
		if err != nil {
			// shut down whatever part of the pipeline already started
			close(decodeRequestChan)
			decodeWg.Wait()
			close(csvRequestChan)
			csvWg.Wait()
			close(errorChan)
			return Summary{}, err
		}
	}

	// collect errors from the workers while the pipeline drains
	var (
		workerErrors   []error
		errorCollector = new(sync.WaitGroup)
	)
	errorCollector.Add(1)
	go func() {
		defer errorCollector.Done()
		for err := range errorChan {
			workerErrors = append(workerErrors, err)
		}
	}()

	// walk errors stay on the main goroutine, worker errors arrive on the
	// error channel; the two slices are merged after the pipeline drains
	var scanErrors []error
	summary := Summary{}
	for _, path := range paths {
		err := filepath.WalkDir(path, func(entryPath string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if s.ctx.Err() != nil {
				return s.ctx.Err()
			}
			if !entry.Type().IsRegular() {
				return nil
			}
			found, err := s.scanFile(entryPath, decodeRequestChan)
			if err != nil {
				scanErrors = append(scanErrors, err)
				return nil // keep walking, a single unreadable file should not abort the scan
			}
			summary.FilesScanned++
			summary.CandidatesFound += found
			return nil
		})
		if err != nil {
			scanErrors = append(scanErrors, err)
		}
	}

	close(decodeRequestChan) // close decode request channel to end decode workers
	decodeWg.Wait()          // wait for decode workers to complete
	close(csvRequestChan)    // close csv request channel to end csv worker
	csvWg.Wait()             // wait for csv worker to complete
	close(errorChan)         // close error channel
	errorCollector.Wait()
	workerErrors = append(workerErrors, scanErrors...)

	summary.UniqueMatches = s.resultsCache.Len()
	summary.CacheHits = s.resultsCache.GetCacheHits()
	log.Printf("scan complete : [%v] files, [%v] candidates, [%v] unique matches\n",
		summary.FilesScanned, summary.CandidatesFound, summary.UniqueMatches)

	return summary, errors.Join(workerErrors...)
}

// scan a single file line by line and send candidates to the decode workers
func (s *_Scanner) scanFile(path string, decodeRequestChan chan interface{}) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	return s.scanReader(path, file, decodeRequestChan)
}

func (s *_Scanner) scanReader(source string, reader io.Reader, decodeRequestChan chan interface{}) (int, error) {
	found := 0
	lineNumber := 0
	lineScanner := bufio.NewScanner(reader)
	lineScanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for lineScanner.Scan() {
		lineNumber++
		line := lineScanner.Text()

		for _, match := range shared.AccessKeyIdCandidatePattern.FindAllString(line, -1) {
			if err := s.send(decodeRequestChan, worker.DecodeWorkerRequest{
				Source: source,
				Line:   lineNumber,
				Match:  match,
				Kind:   shared.CandidateAccessKeyId,
			}); err != nil {
				return found, err
			}
			found++
		}

		for _, match := range shared.IamArnCandidatePattern.FindAllString(line, -1) {
			kind := shared.CandidateIamRoleArn
			if shared.IsValidIamUserArn(match) {
				kind = shared.CandidateIamUserArn
			}
			if err := s.send(decodeRequestChan, worker.DecodeWorkerRequest{
				Source: source,
				Line:   lineNumber,
				Match:  match,
				Kind:   kind,
			}); err != nil {
				return found, err
			}
			found++
		}
	}
	if err := lineScanner.Err(); err != nil {
		return found, err
	}
	return found, nil
}

// send a decode request unless the scan context has been cancelled, the
// workers stop draining the channel once their context is done
func (s *_Scanner) send(decodeRequestChan chan interface{}, request worker.DecodeWorkerRequest) error {
	select {
	case decodeRequestChan <- request:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}
