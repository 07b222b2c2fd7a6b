// Package archive stores finished games as snappy-compressed parquet files.
package archive

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

type GameRecord struct {
	GameID      string   `parquet:"name=game_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Result      string   `parquet:"name=result, type=BYTE_ARRAY, convertedtype=UTF8"`
	Termination string   `parquet:"name=termination, type=BYTE_ARRAY, convertedtype=UTF8"`
	MoveCount   int32    `parquet:"name=move_count, type=INT32"`
	FinalFEN    string   `parquet:"name=final_fen, type=BYTE_ARRAY, convertedtype=UTF8"`
	FENHistory  []string `parquet:"name=fen_history, type=LIST, valuetype=BYTE_ARRAY, valueconvertedtype=UTF8"`
	Moves       []string `parquet:"name=moves, type=LIST, valuetype=BYTE_ARRAY, valueconvertedtype=UTF8"`
	FinishedAt  int64    `parquet:"name=finished_at, type=INT64"`
}

const (
	defaultParallel = 4
	queueSize       = 256
)

// Archiver batches records and flushes them to a new file in dir on every
// tick. Close flushes whatever is still buffered.
type Archiver struct {
	dir      string
	interval time.Duration
	records  chan GameRecord
	done     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	closed   bool
}

func NewArchiver(dir string, interval time.Duration) (*Archiver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	if interval <= 0 {
		interval = time.Minute
	}
	a := &Archiver{
		dir:      dir,
		interval: interval,
		records:  make(chan GameRecord, queueSize),
		done:     make(chan struct{}),
	}
	a.wg.Add(1)
	go a.run()
	return a, nil
}

// Add queues a record. It never blocks the caller: when the queue is full
// the record is dropped and logged.
func (a *Archiver) Add(record GameRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.records <- record:
	default:
		log.Printf("archive queue full, dropping game %s", record.GameID)
	}
}

func (a *Archiver) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.done)
	a.mu.Unlock()
	a.wg.Wait()
	return nil
}

func (a *Archiver) run() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	var batch []GameRecord
	flush := func() {
		if len(batch) == 0 {
			return
		}
		path := filepath.Join(a.dir, fmt.Sprintf("games-%d.parquet", time.Now().UnixNano()))
		if err := WriteFile(path, batch); err != nil {
			log.Printf("archive flush of %d games failed: %v", len(batch), err)
			return
		}
		log.Printf("archived %d games to %s", len(batch), path)
		batch = nil
	}

	for {
		select {
		case record := <-a.records:
			batch = append(batch, record)
		case <-ticker.C:
			flush()
		case <-a.done:
			for {
				select {
				case record := <-a.records:
					batch = append(batch, record)
				default:
					flush()
					return
				}
			}
		}
	}
}

func WriteFile(path string, records []GameRecord) error {
	fileWriter, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	defer fileWriter.Close()

	parquetWriter, err := writer.NewParquetWriter(fileWriter, new(GameRecord), defaultParallel)
	if err != nil {
		return err
	}
	parquetWriter.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, record := range records {
		if err := parquetWriter.Write(record); err != nil {
			return err
		}
	}
	if err := parquetWriter.WriteStop(); err != nil {
		return err
	}
	return fileWriter.Close()
}

func ReadFile(path string) ([]GameRecord, error) {
	fileReader, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, err
	}
	defer fileReader.Close()

	parquetReader, err := reader.NewParquetReader(fileReader, new(GameRecord), defaultParallel)
	if err != nil {
		return nil, err
	}
	defer parquetReader.ReadStop()

	num := int(parquetReader.GetNumRows())
	records := make([]GameRecord, 0, num)
	batchSize := 1024
	for offset := 0; offset < num; offset += batchSize {
		remain := num - offset
		if remain < batchSize {
			batchSize = remain
		}
		batch := make([]GameRecord, batchSize)
		if err := parquetReader.Read(&batch); err != nil {
			return nil, err
		}
		records = append(records, batch...)
	}
	return records, nil
}
