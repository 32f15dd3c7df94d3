package main

import (
	"fmt"
	"os"

	"github.com/gekko3d/hdmoonshine"
	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/gekko3d/hdmoonshine/hdhost"
)

// session is one delegate with a populated scene.
type session struct {
	delegate *hdmoonshine.RenderDelegate
	index    *hdhost.RenderIndex
	scene    *hdhost.Scene
	logFile  *os.File
}

func openSession(scenePath string) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	scene, err := hdhost.LoadScene(scenePath)
	if err != nil {
		return nil, err
	}
	builder := hdmoonshine.NewRenderDelegateBuilder().UseConfig(cfg)
	var logFile *os.File
	if logPath != "" {
		logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		builder.UseLogger(hdmoonshine.NewWriterLogger(logFile, cfg.LogPrefix, cfg.Debug))
	}
	delegate, err := builder.Build()
	if err != nil {
		closeLog(logFile)
		return nil, err
	}
	index := hdhost.NewRenderIndex(delegate)
	if err := scene.Populate(index); err != nil {
		index.Clear()
		delegate.Close()
		closeLog(logFile)
		return nil, err
	}
	return &session{delegate: delegate, index: index, scene: scene, logFile: logFile}, nil
}

func (s *session) close() {
	s.index.Clear()
	s.delegate.Close()
	closeLog(s.logFile)
}

func closeLog(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}

// pick returns want when set, otherwise the first id.
func pick(kind string, ids []hd.Path, want string) (hd.Path, error) {
	if want != "" {
		for _, id := range ids {
			if id == hd.Path(want) {
				return id, nil
			}
		}
		return "", fmt.Errorf("no %s %s in scene", kind, want)
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("scene has no %s", kind)
	}
	return ids[0], nil
}
