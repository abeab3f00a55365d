package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"tradescope/internal/config"
	"tradescope/internal/logger"
)

func setupLogging(app config.AppConfig) (func(), error) {
	var files []*os.File
	closer := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	logger.SetFormat(app.LogFormat)
	logFile, err := setupLogOutput(app.LogPath)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	if logFile != nil {
		files = append(files, logFile)
	}
	logger.SetLLMWriter(nil)
	if strings.TrimSpace(app.LLMLog) != "" {
		f, err := setupLLMLogOutput(app.LLMLog)
		if err != nil {
			closer()
			return nil, fmt.Errorf("open llm log: %w", err)
		}
		files = append(files, f)
	}
	logger.SetLevel(app.LogLevel)
	logger.EnableLLMPayloadDump(app.LLMDump)
	return closer, nil
}

func setupLogOutput(path string) (*os.File, error) {
	file, err := openAppend(path)
	if err != nil || file == nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

func setupLLMLogOutput(path string) (*os.File, error) {
	f, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	logger.SetLLMWriter(f)
	return f, nil
}

func openAppend(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
