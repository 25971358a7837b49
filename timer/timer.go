// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

// DefaultResolution 是检查到期任务的间隔
const DefaultResolution = 100 * time.Millisecond

// TimerTask 是一个按键区分的延迟任务，同一个键同时最多只有一个任务
type TimerTask struct {
	Key      string
	Execute  time.Time
	Callback func()
	index    int
}

type TimerQueue []*TimerTask

func (q TimerQueue) Len() int { return len(q) }

func (q TimerQueue) Less(i, j int) bool {
	return q[i].Execute.Before(q[j].Execute)
}

func (q TimerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *TimerQueue) Push(x interface{}) {
	n := len(*q)
	task := x.(*TimerTask)
	task.index = n
	*q = append(*q, task)
}

func (q *TimerQueue) Pop() interface{} {
	old := *q
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	task.index = -1
	*q = old[0 : n-1]
	return task
}

// TimerManager runs keyed one-shot tasks. Scheduling a key that is already
// pending replaces the old task, so tasks never stack up per key.
type TimerManager struct {
	queue      TimerQueue
	tasks      map[string]*TimerTask
	mutex      sync.Mutex
	resolution time.Duration
	closeChan  chan struct{}
	closeOnce  sync.Once
}

// NewTimerManager 创建定时器管理器并启动处理循环
func NewTimerManager(resolution time.Duration) *TimerManager {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	manager := &TimerManager{
		queue:      make(TimerQueue, 0),
		tasks:      make(map[string]*TimerTask),
		resolution: resolution,
		closeChan:  make(chan struct{}),
	}
	heap.Init(&manager.queue)
	go manager.process()
	return manager
}

// Schedule 在 delay 之后执行 callback，替换同键的未执行任务
func (m *TimerManager) Schedule(key string, delay time.Duration, callback func()) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if old, exists := m.tasks[key]; exists {
		heap.Remove(&m.queue, old.index)
	}
	task := &TimerTask{
		Key:      key,
		Execute:  time.Now().Add(delay),
		Callback: callback,
	}
	heap.Push(&m.queue, task)
	m.tasks[key] = task
}

// Cancel 取消未执行的任务，返回是否真的取消了一个任务
func (m *TimerManager) Cancel(key string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	task, exists := m.tasks[key]
	if !exists {
		return false
	}
	heap.Remove(&m.queue, task.index)
	delete(m.tasks, key)
	return true
}

// Pending reports whether a task is waiting for key.
func (m *TimerManager) Pending(key string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, exists := m.tasks[key]
	return exists
}

// Len returns the number of pending tasks.
func (m *TimerManager) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.queue.Len()
}

// Stop 停止处理循环，未执行的任务被丢弃
func (m *TimerManager) Stop() {
	m.closeOnce.Do(func() {
		close(m.closeChan)
	})
}

func (m *TimerManager) process() {
	ticker := time.NewTicker(m.resolution)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			for _, task := range m.due(now) {
				go task.Callback()
			}
		case <-m.closeChan:
			return
		}
	}
}

// due 取出所有已到期的任务
func (m *TimerManager) due(now time.Time) []*TimerTask {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var ready []*TimerTask
	for m.queue.Len() > 0 {
		task := m.queue[0]
		if task.Execute.After(now) {
			break
		}
		heap.Pop(&m.queue)
		delete(m.tasks, task.Key)
		ready = append(ready, task)
	}
	return ready
}
