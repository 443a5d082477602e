package app

import (
	"fmt"
	"strings"

	"sonar/hal"
	"sonar/kernel"
	"sonar/sonar/services/screen"
)

// installPanicHandler reports the first task panic over the log sink and on the
// panel. Running tasks are cancelled by the kernel.
func installPanicHandler(sink hal.Logger, scr *screen.Renderer) {
	kernel.SetPanicHandler(func(info kernel.PanicInfo) {
		if sink != nil {
			sink.WriteLineString(fmt.Sprintf("sonar panic: task=%s id=%d panic=%v", info.TaskName, info.TaskID, info.Value))
			for _, line := range strings.Split(string(info.Stack), "\n") {
				if line == "" {
					continue
				}
				sink.WriteLineString(line)
			}
		}
		if scr != nil {
			_ = scr.Message("Panic: "+info.TaskName, fmt.Sprint(info.Value))
		}
	})
}

// Fatal reports a start-up error on every channel still working.
func Fatal(h hal.HAL, err error) {
	if h == nil || err == nil {
		return
	}
	if sink := h.Logger(); sink != nil {
		sink.WriteLineString("sonar: " + err.Error())
	}
	if p := h.Panel(); p != nil {
		_ = screen.New(p, 0).Message("Erro:", err.Error())
	}
}
