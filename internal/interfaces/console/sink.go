package console

import (
	"fmt"
	"time"

	"fundarb/internal/application/port"
)

type Sink struct{}

func NewSink() port.Sink { return &Sink{} }

// 整帧重画：先清屏回到左上角，再输出新帧
func (s *Sink) WriteFrame(frame string) error {
	fmt.Print("\033[H\033[2J")
	fmt.Print(frame)
	return nil
}

func (s *Sink) WriteSnapshot(ts time.Time, line string) error {
	fmt.Printf("%s %s\n", ts.Format("2006-01-02 15:04:05"), line)
	return nil
}

func (s *Sink) NewLine() error {
	fmt.Print("\n")
	return nil
}
