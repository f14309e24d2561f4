package worker

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/cache"
	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/shared"
	"github.com/stretchr/testify/assert"
)

func TestNewCsvWorker(t *testing.T) {
	assertion := assert.New(t)

	var (
		validWorkerConfig = WorkerConfig{
			Ctx:          context.Background(),
			Id:           "testCsvWorker",
			Wg:           new(sync.WaitGroup),
			RequestChan:  make(chan interface{}, 1),
			ErrorChan:    make(chan error, 1),
			ResultsCache: cache.NewDecodeResultsCache(),
		}
		validOutputConfig = OutputConfiguration{
			Headers:   shared.ReportHeaders,
			Filename:  "test.csv",
			OutputDir: t.TempDir(),
		}
		csvWorkerTests = []struct {
			name               string
			input              CsvWorkerConfig
			expectedValidValue bool
			expectedError      error
		}{
			{
				"valid csv worker config", CsvWorkerConfig{
					WorkerConfig: validWorkerConfig,
					OutputConfig: validOutputConfig,
				}, true, nil,
			},
			{
				"invalid worker config", CsvWorkerConfig{
					WorkerConfig: WorkerConfig{},
					OutputConfig: validOutputConfig,
				}, false, errors.New("invalid worker config"),
			},
			{
				"invalid output config - empty filename", CsvWorkerConfig{
					WorkerConfig: validWorkerConfig,
					OutputConfig: OutputConfiguration{
						Headers:  shared.ReportHeaders,
						Filename: "",
					},
				}, false, errors.New("filename is empty"),
			},
			{
				"invalid output config - empty headers", CsvWorkerConfig{
					WorkerConfig: validWorkerConfig,
					OutputConfig: OutputConfiguration{
						Headers:  []string{},
						Filename: "test.csv",
					},
				}, false, errors.New("header is empty"),
			},
		}
	)

	// loop through test cases and create new csv worker for each test case
	for _, test := range csvWorkerTests {
		t.Run(test.name, func(t *testing.T) {
			csvWorker, err := NewCSVWorker(test.input)
			if test.expectedValidValue {
				assertion.NoError(err)
				assertion.NotNil(csvWorker)
			} else {
				assertion.Error(err)
				assertion.Contains(err.Error(), test.expectedError.Error())
			}
		})
	}

	close(validWorkerConfig.RequestChan) // close request channel to end worker loop
	validWorkerConfig.Wg.Wait()          // wait for worker to complete
	close(validWorkerConfig.ErrorChan)   // close error channel
}

func TestCsvWorkerRun(t *testing.T) {
	assertion := assert.New(t)

	outputDir := t.TempDir()
	workerConfig := WorkerConfig{
		Ctx:          context.Background(),
		Id:           "testCsvWorker",
		Wg:           new(sync.WaitGroup),
		RequestChan:  make(chan interface{}, 5),
		ErrorChan:    make(chan error, 5),
		ResultsCache: cache.NewDecodeResultsCache(),
	}

	csvWorker, err := NewCSVWorker(CsvWorkerConfig{
		WorkerConfig: workerConfig,
		OutputConfig: OutputConfiguration{
			Headers:   shared.ReportHeaders,
			Filename:  "findings.csv",
			OutputDir: outputDir,
		},
	})
	assertion.NoError(err)
	assertion.NotNil(csvWorker)

	records := [][]string{
		{"creds.txt", "3", "AKIASP2T************", shared.CandidateAccessKeyId, "Access key", "171436882533"},
		{"main.tf", "17", "arn:aws:iam::123456789012:role/deploy", shared.CandidateIamRoleArn, "Role", "123456789012"},
	}
	for _, record := range records {
		workerConfig.RequestChan <- CsvWorkerRequest{CsvRecord: record}
	}

	close(workerConfig.RequestChan) // close request channel to end worker loop
	workerConfig.Wg.Wait()          // wait for worker to complete
	close(workerConfig.ErrorChan)   // close error channel
	assertion.Empty(workerConfig.ErrorChan)

	// read back the report and verify headers + records
	file, err := os.Open(filepath.Join(outputDir, "findings.csv"))
	assertion.NoError(err)
	defer file.Close()

	written, err := csv.NewReader(file).ReadAll()
	assertion.NoError(err)
	assertion.Len(written, 3)
	assertion.Equal(shared.ReportHeaders, written[0])
	assertion.Equal(records[0], written[1])
	assertion.Equal(records[1], written[2])
}
