package ingest

import (
	"strconv"
	"sync"
	"time"
)

// nameGenerator 以微秒时间戳生成文件名；同一微秒内的多次调用顺延 1µs，保证进程内唯一。
type nameGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func newNameGenerator(now func() time.Time) *nameGenerator {
	if now == nil {
		now = time.Now
	}
	return &nameGenerator{now: now}
}

func (g *nameGenerator) next(ext string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	micros := g.now().UnixMicro()
	if micros <= g.last {
		micros = g.last + 1
	}
	g.last = micros
	return strconv.FormatInt(micros, 10) + ext
}
