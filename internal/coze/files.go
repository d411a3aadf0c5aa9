package coze

import (
	"context"
	"io"
)

// UploadFile sends a file to the platform's file service and returns the
// platform file id accepted by image-reference content items.
func (c *Client) UploadFile(ctx context.Context, r io.Reader, filename string) (*FileInfo, error) {
	var env fileEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", filename, r).
		SetResult(&env).
		Post("/v1/files/upload")
	if err != nil {
		return nil, &RemoteError{Op: "上传到Coze API失败", Err: err}
	}
	if resp.IsError() {
		return nil, &APIError{Op: "上传到Coze API失败", Code: resp.StatusCode(), Msg: resp.Status()}
	}
	if env.Code != 0 {
		return nil, &APIError{Op: "上传到Coze API失败", Code: env.Code, Msg: env.Msg}
	}
	info := env.Data
	if info.FileName == "" {
		info.FileName = filename
	}
	return &info, nil
}
