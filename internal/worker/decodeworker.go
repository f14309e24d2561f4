package worker

import (
	"errors"
	"log"
	"strconv"

	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/cache"
	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/keyid"
	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/shared"
)

type _DecodeWorker struct {
	csvRequestChan chan interface{} // channel feeding the csv report worker
	minEntropy     float64          // entropy threshold for access key id candidates
	Worker         Worker           // worker interface
}

type DecodeWorkerConfig struct {
	WorkerConfig   WorkerConfig     // worker configuration
	CsvRequestChan chan interface{} // channel feeding the csv report worker
	MinEntropy     float64          // entropy threshold, zero disables filtering
}

// request to resolve one candidate match found by the scanner
type DecodeWorkerRequest struct {
	Source string // file or reader the match was found in
	Line   int    // 1-based line number of the match
	Match  string // matched text
	Kind   string // candidate kind from shared
}

// create new decode worker
func NewDecodeWorker(config DecodeWorkerConfig) (*_DecodeWorker, error) {
	if config.CsvRequestChan == nil {
		return nil, errors.New("csv request channel is required")
	}
	if config.MinEntropy < 0 {
		return nil, errors.New("minimum entropy cannot be negative")
	}

	// create worker interface
	worker, err := NewWorker(config.WorkerConfig)
	// return errors
	if err != nil {
		return nil, errors.New("invalid worker config : " + err.Error())
	}

	decodeWorker := &_DecodeWorker{
		csvRequestChan: config.CsvRequestChan,
		minEntropy:     config.MinEntropy,
		Worker:         worker,
	}

	worker.SetRequestHandler(decodeWorker) // set decode worker request handler
	worker.SetFinalizer(decodeWorker)

	return decodeWorker, nil
}

// handle requests.  Resolves the candidate to an account id + resource type,
// consulting the shared results cache so repeated occurrences of the same
// match are decoded once, and forwards a report record to the csv worker.
func (decodeWorker *_DecodeWorker) Handle(request interface{}) {
	errorChan := decodeWorker.Worker.GetErrorChannel() // get error channel
	req, ok := request.(DecodeWorkerRequest)           // type assert to decode worker request type
	if !ok {
		errorChan <- errors.New("type assertion failed. request is not a decode worker request")
		return
	}

	// drop low entropy access key id candidates (placeholder keys in docs,
	// sample configs, etc match the pattern but carry no real payload)
	if req.Kind == shared.CandidateAccessKeyId && decodeWorker.minEntropy > 0 {
		if entropy := shared.ShannonEntropy(req.Match); entropy < decodeWorker.minEntropy {
			log.Printf("dropping low entropy candidate [%v] from [%v] : entropy [%.2f]\n",
				shared.RedactKeyId(req.Match), req.Source, entropy)
			return
		}
	}

	result := decodeWorker.resolve(req.Match, req.Kind)
	if result.ErrMessage != "" {
		log.Printf("candidate [%v] from [%v] could not be decoded : [%v]\n",
			redactMatch(req.Match, req.Kind), req.Source, result.ErrMessage)
	}

	record := []string{
		req.Source,
		strconv.Itoa(req.Line),
		redactMatch(req.Match, req.Kind),
		req.Kind,
		shared.ValidateAnnotation(result.ResourceType, 64),
		shared.ValidateAnnotation(result.AccountId, 12),
	}

	// the csv worker stops draining its channel once the context is
	// cancelled, so the send must not block past cancellation
	select {
	case decodeWorker.csvRequestChan <- CsvWorkerRequest{CsvRecord: record}:
	case <-decodeWorker.Worker.GetContext().Done():
		log.Printf("decode worker [%v] dropping record for [%v] : [%v]\n",
			decodeWorker.Worker.GetId(), req.Source, decodeWorker.Worker.GetContext().Err())
	}
}

// finalize processing by reporting cache effectiveness
func (decodeWorker *_DecodeWorker) Finalize() {
	resultsCache := decodeWorker.Worker.GetResultsCache()
	log.Printf("decode worker [%v] finished : [%v] unique matches, [%v] cache hits, [%v] cache misses\n",
		decodeWorker.Worker.GetId(), resultsCache.Len(),
		resultsCache.GetCacheHits(), resultsCache.GetCacheMisses())
}

// resolve a candidate to its decode result, cached by match + kind
func (decodeWorker *_DecodeWorker) resolve(match string, kind string) cache.DecodeCacheResult {
	resultsCache := decodeWorker.Worker.GetResultsCache()
	cacheKey := cache.DecodeCacheKey{Match: match, Kind: kind}

	if cached, ok := resultsCache.Get(cacheKey); ok {
		return cached.(cache.DecodeCacheResult)
	}

	var result cache.DecodeCacheResult
	switch kind {
	case shared.CandidateAccessKeyId:
		accountId, err := keyid.GetAwsAccountId(match)
		if err != nil {
			result.ErrMessage = err.Error()
		} else {
			result.AccountId = accountId
		}
		resourceType, err := keyid.GetAssociatedResourceType(match)
		if err == nil {
			result.ResourceType = resourceType
		}
	case shared.CandidateIamUserArn, shared.CandidateIamRoleArn:
		accountId, err := shared.ExtractAWSAccountFromARN(match)
		if err != nil {
			result.ErrMessage = err.Error()
		} else {
			result.AccountId = accountId
		}
		if kind == shared.CandidateIamUserArn {
			result.ResourceType = "IAM user"
		} else {
			result.ResourceType = "Role"
		}
	default:
		result.ErrMessage = "unknown candidate kind " + kind
	}

	if err := resultsCache.Set(cacheKey, result); err != nil {
		decodeWorker.Worker.GetErrorChannel() <- err
	}
	return result
}

// access key ids are partially masked in the report, arns are recorded as is
func redactMatch(match string, kind string) string {
	if kind == shared.CandidateAccessKeyId {
		return shared.RedactKeyId(match)
	}
	return match
}
