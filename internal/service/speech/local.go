package speech

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
)

var ErrNoLocalCommand = errors.New("local speech command not configured")

// CommandSynthesizer speaks by running an external program (for example "espeak -s 150")
// with the text as its last argument. Starting a new utterance kills the previous one.
type CommandSynthesizer struct {
	name string
	args []string

	mu      sync.Mutex
	current *exec.Cmd
	running sync.WaitGroup
}

// NewCommandSynthesizer 解析 SPEECH_LOCAL_COMMAND 形式的命令行。
func NewCommandSynthesizer(commandLine string) (*CommandSynthesizer, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, ErrNoLocalCommand
	}
	return &CommandSynthesizer{name: fields[0], args: fields[1:]}, nil
}

// Speak stops any active utterance and starts a new one without waiting for it.
func (c *CommandSynthesizer) Speak(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()

	args := append(append([]string(nil), c.args...), text)
	cmd := exec.Command(c.name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.name, err)
	}
	c.current = cmd

	c.running.Add(1)
	go func() {
		defer c.running.Done()
		if err := cmd.Wait(); err != nil {
			log.Printf("[speech] local command exited: %v", err)
		}
		c.mu.Lock()
		if c.current == cmd {
			c.current = nil
		}
		c.mu.Unlock()
	}()
	return nil
}

// Stop kills the active utterance, if any.
func (c *CommandSynthesizer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Wait blocks until every started utterance has exited.
func (c *CommandSynthesizer) Wait() {
	c.running.Wait()
}

// Active reports whether an utterance is currently running.
func (c *CommandSynthesizer) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

func (c *CommandSynthesizer) stopLocked() {
	if c.current == nil || c.current.Process == nil {
		return
	}
	if err := c.current.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Printf("[speech] kill local command: %v", err)
	}
	c.current = nil
}

// RelaySynthesizer forwards speak/stop commands to the browser, which owns the actual voice.
type RelaySynthesizer struct {
	send func(event string, payload map[string]any) error
}

// NewRelaySynthesizer 使用 send 把朗读指令推送给前端。
func NewRelaySynthesizer(send func(event string, payload map[string]any) error) *RelaySynthesizer {
	return &RelaySynthesizer{send: send}
}

// Speak asks the browser to cancel current speech and read text.
func (r *RelaySynthesizer) Speak(text string) error {
	return r.send("speak", map[string]any{"text": text, "rate": 0.9, "pitch": 1})
}

// Stop asks the browser to cancel current speech.
func (r *RelaySynthesizer) Stop() {
	if err := r.send("stop", nil); err != nil {
		log.Printf("[speech] relay stop failed: %v", err)
	}
}
