package storage

import (
	"context"
	"os"
)

type FileSnapshotState struct {
	FilePath string
}

func NewFileSnapshotState(filePath string) *FileSnapshotState {
	return &FileSnapshotState{FilePath: filePath}
}

func (f *FileSnapshotState) Load(ctx context.Context) ([]byte, error) {
	return os.ReadFile(f.FilePath)
}
