package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// useBufferWriters 在测试期间把 stdOut/stdErr 替换为内存缓冲区。
func useBufferWriters(t *testing.T) {
	t.Helper()

	prevOut, prevErr := stdOut, stdErr
	stdOut, stdErr = &bytes.Buffer{}, &bytes.Buffer{}
	t.Cleanup(func() {
		stdOut, stdErr = prevOut, prevErr
	})
}

func stdOutBuffer() *bytes.Buffer {
	buf, _ := stdOut.(*bytes.Buffer)
	return buf
}

func stdErrBuffer() *bytes.Buffer {
	buf, _ := stdErr.(*bytes.Buffer)
	return buf
}

// configFixture 返回 internal/config/testdata 下的样例配置路径；
// go test 以包目录为工作目录，因此相对路径即可定位。
func configFixture(t *testing.T, name string) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("internal", "config", "testdata", name))
	if err != nil {
		t.Fatalf("无法解析样例路径: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("样例配置不存在: %v", err)
	}
	return path
}
