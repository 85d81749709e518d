package sandbox

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"path"
)

// stagingName is the archive member name; the file lands in /tmp under
// this name and is moved into place with mv.
const stagingName = "transfer.txt"

// CopyFileToContainer writes content as a file at dest inside the
// container. The content travels as a tar archive extracted into /tmp and
// is then moved to its destination.
func CopyFileToContainer(ctx context.Context, c Container, content string, dest string) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{
		Name: stagingName,
		Mode: 0o644,
		Size: int64(len(content)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing tar header: %w", err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		return fmt.Errorf("writing tar content: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing tar archive: %w", err)
	}

	if err := c.PutArchive(ctx, "/tmp", buf.Bytes()); err != nil {
		return err
	}

	res, err := c.Exec(ctx, []string{"mv", path.Join("/tmp", stagingName), dest})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("failed to move temporary file to destination: %s", res.Output)
	}
	return nil
}
