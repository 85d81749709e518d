package sandbox

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"testing"
)

func TestCopyFileToContainer(t *testing.T) {
	c := &fakeContainer{}
	content := "print('hello')\n"

	if err := CopyFileToContainer(context.Background(), c, content, "/tmp/server.py"); err != nil {
		t.Fatalf("CopyFileToContainer failed: %v", err)
	}

	archive, ok := c.archives["/tmp"]
	if !ok {
		t.Fatal("no archive put into /tmp")
	}
	tr := tar.NewReader(bytes.NewReader(archive))
	hdr, err := tr.Next()
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	if hdr.Name != "transfer.txt" {
		t.Errorf("archive member = %q, want transfer.txt", hdr.Name)
	}
	data, err := io.ReadAll(tr)
	if err != nil {
		t.Fatalf("reading member: %v", err)
	}
	if string(data) != content {
		t.Errorf("content = %q, want %q", data, content)
	}

	if !c.ran("mv", "/tmp/transfer.txt", "/tmp/server.py") {
		t.Errorf("staged file not moved into place, ran: %v", c.commands)
	}
}

func TestCopyFileToContainer_MoveFails(t *testing.T) {
	c := &fakeContainer{exec: func(argv []string) ExecResult {
		return ExecResult{ExitCode: 1, Output: "mv: cannot move\n"}
	}}
	err := CopyFileToContainer(context.Background(), c, "x", "/etc/dest")
	if err == nil {
		t.Fatal("expected error when mv fails")
	}
}
