// Package view 保存页面状态与交互逻辑，渲染由调用方负责
package view

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Notifier 向用户展示阻断式提示
type Notifier interface {
	Alert(message string)
}

// Confirmer 向用户请求确认
type Confirmer interface {
	Confirm(message string) bool
}

// NotifierFunc 函数适配
type NotifierFunc func(message string)

func (f NotifierFunc) Alert(message string) { f(message) }

// ConfirmFunc 函数适配
type ConfirmFunc func(message string) bool

func (f ConfirmFunc) Confirm(message string) bool { return f(message) }

// WriterNotifier 将提示写到 io.Writer（命令行下为 stderr）
type WriterNotifier struct {
	W io.Writer
}

func (n WriterNotifier) Alert(message string) {
	fmt.Fprintf(n.W, "! %s\n", message)
}

// PromptConfirmer 从输入读取 y/yes 作为确认
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (p PromptConfirmer) Confirm(message string) bool {
	fmt.Fprintf(p.Out, "%s [y/N]: ", message)
	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

type discard struct{}

func (discard) Alert(string) {}

func notifierOrDiscard(n Notifier) Notifier {
	if n == nil {
		return discard{}
	}
	return n
}
