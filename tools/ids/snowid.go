package ids

import (
	"strconv"
	"sync"
	"time"
)

// Node generates 64-bit snowflake ids: 41 bits ms since epoch, 10 bits node, 12 bits sequence.
type Node struct {
	mu       sync.Mutex
	epochMS  int64
	nodeID   int64 // 0~1023
	seq      int64 // 0~4095
	lastTSMS int64
	now      func() time.Time
}

var (
	defaultNode *Node
	once        sync.Once
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// NewNode creates a generator; out-of-range ids fall back to 1.
func NewNode(nodeID int64) *Node {
	if nodeID < 0 || nodeID > 1023 {
		nodeID = 1
	}
	return &Node{epochMS: epoch.UnixMilli(), nodeID: nodeID, now: time.Now}
}

func initDefault() {
	once.Do(func() {
		defaultNode = NewNode(1)
	})
}

// SetNodeID 设置默认生成器的 nodeID，应在 main() 初始化时调用
func SetNodeID(nodeID int64) {
	initDefault()
	defaultNode.mu.Lock()
	defer defaultNode.mu.Unlock()
	if nodeID < 0 || nodeID > 1023 {
		nodeID = 1
	}
	defaultNode.nodeID = nodeID
}

func Generate() int64 {
	initDefault()
	return defaultNode.Next()
}

func GenerateString() string {
	return strconv.FormatInt(Generate(), 10)
}

// NextString is Next formatted in base 10.
func (g *Node) NextString() string {
	return strconv.FormatInt(g.Next(), 10)
}

func (g *Node) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		now := g.now().UnixMilli()
		if now < g.lastTSMS {
			// 时钟回拨，等待
			time.Sleep(time.Duration(g.lastTSMS-now) * time.Millisecond)
			continue
		}
		if now == g.lastTSMS {
			g.seq = (g.seq + 1) & 0xFFF
			if g.seq == 0 {
				for now <= g.lastTSMS {
					now = g.now().UnixMilli()
				}
			}
		} else {
			g.seq = 0
		}
		g.lastTSMS = now

		ts := (now - g.epochMS) & ((1 << 41) - 1)
		return (ts << 22) | (g.nodeID << 12) | g.seq
	}
}
