package worker

import (
	"bytes"
	"encoding/csv"
	"errors"
	"log"
	"os"
	"path/filepath"
)

type _CSVWorker struct {
	records      [][]string          // records to write to csv
	buffer       *bytes.Buffer       // buffer for storing bytes
	csvWriter    *csv.Writer         // csv writer for writing to buffer
	outputConfig OutputConfiguration // output configuration for writing the report file
	Worker       Worker              // worker interface
}

type CsvWorkerConfig struct {
	WorkerConfig WorkerConfig // worker configuration
	OutputConfig OutputConfiguration
}

type OutputConfiguration struct {
	Headers   []string // headers for csv file
	Filename  string   // name of file to be written
	OutputDir string   // directory to write the report into, defaults to the working directory
}

type CsvWorkerRequest struct {
	CsvRecord []string // record to write to csv file
}

// create new csv worker
func NewCSVWorker(config CsvWorkerConfig) (*_CSVWorker, error) {

	// check for valid output configuration
	if config.OutputConfig.Filename == "" {
		return nil, errors.New("invalid output configuration. filename is empty")
	}
	if len(config.OutputConfig.Headers) == 0 {
		return nil, errors.New("invalid output configuration. header is empty")
	}

	// create worker interface
	worker, err := NewWorker(config.WorkerConfig)
	// return errors
	if err != nil {
		return nil, errors.New("invalid worker config : " + err.Error())
	}

	records := [][]string{}            // initialize records to empty,
	buffer := new(bytes.Buffer)        // create new buffer
	csvWriter := csv.NewWriter(buffer) // create new csv writer that write to buffer

	// write headers to csv buffer
	if err := csvWriter.Write(config.OutputConfig.Headers); err != nil {
		return nil, err
	}

	csvWorker := &_CSVWorker{
		records:      records,
		buffer:       buffer,
		csvWriter:    csvWriter,
		outputConfig: config.OutputConfig,
		Worker:       worker,
	}

	worker.SetRequestHandler(csvWorker) // set csv worker request handler
	worker.SetFinalizer(csvWorker)

	return csvWorker, nil
}

// handle requests
func (csvWorker *_CSVWorker) Handle(request interface{}) {
	errorChan := csvWorker.Worker.GetErrorChannel() // get error channel
	req, ok := request.(CsvWorkerRequest)           // type assert to csv worker request type
	if !ok {
		errorChan <- errors.New("type assertion failed. request is not a csv worker request")
		return
	}
	record := req.CsvRecord                               // get record
	csvWorker.records = append(csvWorker.records, record) // append record to records
	// write record to buffer, send error to error channel if present
	if err := csvWorker.csvWriter.Write(record); err != nil {
		errorChan <- err // send error to error channel
	}
}

// finalize processing by flushing the buffered records to the report file
func (csvWorker *_CSVWorker) Finalize() {
	errorChan := csvWorker.Worker.GetErrorChannel() // get error channel
	csvWriter := csvWorker.csvWriter                // get csv writer
	// flush csv writer
	csvWriter.Flush()

	// check for errors
	if err := csvWriter.Error(); err != nil {
		errorChan <- err // send error to error channel
	}
	finalBytes := csvWorker.buffer.Bytes() // get final bytes

	reportPath := filepath.Join(csvWorker.outputConfig.OutputDir, csvWorker.outputConfig.Filename)
	log.Printf("writing report to file [%v]\n", reportPath)
	file, err := os.Create(reportPath)
	if err != nil {
		errorChan <- err // send error to error channel
		log.Printf("error creating file [%v]\n", err.Error())
		return
	}
	defer file.Close()

	_, err = file.Write(finalBytes)
	if err != nil {
		errorChan <- err // send error to error channel
		log.Printf("error writing to file [%v]\n", err.Error())
		return
	}
	log.Printf("finished writing [%v] records to file [%v]\n", len(csvWorker.records), reportPath)
}
