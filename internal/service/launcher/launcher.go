// Package launcher 按机器人启动独立聊天子进程并跟踪其生命周期
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/ashwinyue/chatbot-admin/internal/config"
	"github.com/ashwinyue/chatbot-admin/internal/model"
)

// ErrNoFreePort 端口区间内无可用端口
var ErrNoFreePort = errors.New("no free port in configured range")

// 就绪探测节奏
const (
	readyAttempts = 30
	readyInterval = time.Second
)

// Instance 一个运行中的聊天子进程
type Instance struct {
	Name      string    `json:"name"`
	Port      int       `json:"port"`
	URL       string    `json:"url"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

// LaunchResult 启动结果，经由通道异步交付
type LaunchResult struct {
	Instance *Instance
	Err      error
}

// Launcher 聊天子进程启动器
type Launcher struct {
	cfg     *config.Config
	mu      sync.Mutex
	running map[string]*Instance
}

// New 创建启动器
func New(cfg *config.Config) *Launcher {
	return &Launcher{
		cfg:     cfg,
		running: make(map[string]*Instance),
	}
}

// Launch 为机器人启动聊天子进程。立即返回结果通道，
// 子进程就绪或失败后写入一次结果并关闭通道。
// 同名机器人已在运行时直接返回现有实例。
func (l *Launcher) Launch(ctx context.Context, bot *model.Chatbot) <-chan LaunchResult {
	ch := make(chan LaunchResult, 1)

	l.mu.Lock()
	if inst, ok := l.running[bot.Name]; ok {
		l.mu.Unlock()
		ch <- LaunchResult{Instance: inst}
		close(ch)
		return ch
	}
	l.mu.Unlock()

	go func() {
		defer close(ch)
		inst, err := l.launch(ctx, bot)
		ch <- LaunchResult{Instance: inst, Err: err}
	}()
	return ch
}

func (l *Launcher) launch(ctx context.Context, bot *model.Chatbot) (*Instance, error) {
	port, err := l.probePort()
	if err != nil {
		return nil, err
	}

	indexName := ""
	if bot.IndexName != nil {
		indexName = *bot.IndexName
	}

	cmd := exec.Command(l.cfg.Chat.BinPath)
	cmd.Env = append(os.Environ(),
		"CHATBOT_NAME="+bot.Name,
		"CHATBOT_LOCATION="+bot.Location,
		"CHATBOT_INDEX_NAME="+indexName,
		"CHATBOT_CHAT_PORT="+strconv.Itoa(port),
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start chat process: %w", err)
	}

	inst := &Instance{
		Name:      bot.Name,
		Port:      port,
		URL:       fmt.Sprintf("http://localhost:%d", port),
		PID:       cmd.Process.Pid,
		StartedAt: time.Now(),
	}

	if err := l.waitReady(ctx, inst.URL); err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}

	l.mu.Lock()
	l.running[bot.Name] = inst
	l.mu.Unlock()

	// 子进程退出后移除跟踪记录
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("Warning: chat process for %s exited: %v", bot.Name, err)
		}
		l.mu.Lock()
		if cur, ok := l.running[bot.Name]; ok && cur.PID == inst.PID {
			delete(l.running, bot.Name)
		}
		l.mu.Unlock()
	}()

	log.Printf("Chat process for %s listening on port %d (pid %d)", bot.Name, port, inst.PID)
	return inst, nil
}

// probePort 从起始端口依次探测，返回第一个可绑定的端口
func (l *Launcher) probePort() (int, error) {
	start := l.cfg.Chat.PortStart
	for port := start; port < start+l.cfg.Chat.PortRange; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			continue
		}
		ln.Close()
		return port, nil
	}
	return 0, ErrNoFreePort
}

// waitReady 轮询子进程健康端点直到就绪或尝试耗尽
func (l *Launcher) waitReady(ctx context.Context, baseURL string) error {
	client := &http.Client{Timeout: readyInterval}
	for i := 0; i < readyAttempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyInterval):
		}
	}
	return fmt.Errorf("chat process not ready after %d checks", readyAttempts)
}

// Running 当前运行中的实例列表
func (l *Launcher) Running() []*Instance {
	l.mu.Lock()
	defer l.mu.Unlock()

	instances := make([]*Instance, 0, len(l.running))
	for _, inst := range l.running {
		instances = append(instances, inst)
	}
	return instances
}

// Get 获取指定机器人的运行实例
func (l *Launcher) Get(name string) (*Instance, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	inst, ok := l.running[name]
	return inst, ok
}

// Stop 终止指定机器人的聊天子进程
func (l *Launcher) Stop(name string) error {
	l.mu.Lock()
	inst, ok := l.running[name]
	if ok {
		delete(l.running, name)
	}
	l.mu.Unlock()

	if !ok {
		return fmt.Errorf("chatbot %s is not running", name)
	}

	proc, err := os.FindProcess(inst.PID)
	if err != nil {
		return err
	}
	return proc.Kill()
}
