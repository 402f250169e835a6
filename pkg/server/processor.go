package server

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/kpfaulkner/featuretables/pkg/storage"
	"github.com/kpfaulkner/featuretables/pkg/table"
)

const defaultQueueSize = 1000

var errProcessorStopped = fmt.Errorf("processor stopped: %w", storage.ErrClosed)

// appendRequest is a pending AddData for a table. The result is sent on done.
type appendRequest struct {
	ctx     context.Context
	columns []*table.Column
	done    chan error
}

// tableChannels holds the input channel for a single table and the goroutine
// draining it.
type tableChannels struct {
	inChannel chan *appendRequest

	// closed to ask the writer to drain and exit
	quit chan struct{}

	// closed by the writer once it has exited
	stopped chan struct{}
}

// Processor serialises appends per table. Each table that is written to gets
// its own goroutine, so appends to one table are applied in arrival order
// while different tables proceed in parallel.
type Processor struct {
	tableChannelLock sync.Mutex

	// map of table id to the channels used to feed its writer.
	tableChannels map[int64]*tableChannels

	// size of each table's queue.
	queueSize int

	stopped bool

	// DB for storing rows.
	db storage.DB

	// called with the number of rows appended, for metrics.
	onAppend func(rows int)
}

func NewProcessor(db storage.DB, queueSize int) *Processor {
	p := Processor{}
	p.tableChannels = make(map[int64]*tableChannels)
	p.db = db
	p.queueSize = queueSize
	if p.queueSize <= 0 {
		p.queueSize = defaultQueueSize
	}
	return &p
}

// channelsForTable returns the input channel for a table, starting its writer
// if this is the first write since the table was seen.
func (p *Processor) channelsForTable(tableID int64) (*tableChannels, error) {
	p.tableChannelLock.Lock()
	defer p.tableChannelLock.Unlock()

	if p.stopped {
		return nil, errProcessorStopped
	}

	tc, ok := p.tableChannels[tableID]
	if !ok {
		tc = &tableChannels{
			inChannel: make(chan *appendRequest, p.queueSize),
			quit:      make(chan struct{}),
			stopped:   make(chan struct{}),
		}
		p.tableChannels[tableID] = tc

		go p.processAppends(tableID, tc)
	}
	return tc, nil
}

// Append queues the columns for tableID and waits until they are written.
func (p *Processor) Append(ctx context.Context, tableID int64, cols []*table.Column) error {
	tc, err := p.channelsForTable(tableID)
	if err != nil {
		return err
	}

	req := &appendRequest{ctx: ctx, columns: cols, done: make(chan error, 1)}
	select {
	case tc.inChannel <- req:
	case <-tc.stopped:
		return errProcessorStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		return err
	case <-tc.stopped:
		// queued after the writer drained
		select {
		case err := <-req.done:
			return err
		default:
			return errProcessorStopped
		}
	case <-ctx.Done():
		// the write may still happen, the caller just stops waiting.
		return ctx.Err()
	}
}

func (p *Processor) processAppends(tableID int64, tc *tableChannels) {
	defer close(tc.stopped)

	for {
		select {
		case req := <-tc.inChannel:
			p.apply(tableID, req)
		case <-tc.quit:
			// drain whatever is already queued
			for {
				select {
				case req := <-tc.inChannel:
					p.apply(tableID, req)
				default:
					log.Debugf("writer for table %d stopped", tableID)
					return
				}
			}
		}
	}
}

func (p *Processor) apply(tableID int64, req *appendRequest) {
	if err := req.ctx.Err(); err != nil {
		req.done <- err
		return
	}
	err := p.db.AddData(req.ctx, tableID, req.columns)
	if err != nil {
		log.Errorf("unable to append to table %d: %v", tableID, err)
	} else if p.onAppend != nil && len(req.columns) > 0 {
		p.onAppend(req.columns[0].Len())
	}
	req.done <- err
}

// Forget stops the writer for a table, e.g. after it has been deleted.
// Queued appends are still processed first.
func (p *Processor) Forget(tableID int64) {
	p.tableChannelLock.Lock()
	tc, ok := p.tableChannels[tableID]
	if ok {
		delete(p.tableChannels, tableID)
		close(tc.quit)
	}
	p.tableChannelLock.Unlock()

	if ok {
		<-tc.stopped
	}
}

// Stop closes every writer and waits for them to drain.
func (p *Processor) Stop() {
	p.tableChannelLock.Lock()
	p.stopped = true
	all := p.tableChannels
	p.tableChannels = make(map[int64]*tableChannels)
	for _, tc := range all {
		close(tc.quit)
	}
	p.tableChannelLock.Unlock()

	for _, tc := range all {
		<-tc.stopped
	}
}

// ActiveTables returns the number of tables with a running writer.
func (p *Processor) ActiveTables() int {
	p.tableChannelLock.Lock()
	defer p.tableChannelLock.Unlock()
	return len(p.tableChannels)
}
