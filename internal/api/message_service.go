package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/moatasem-alhilali/wadash/internal/wire"
)

// MessageService covers the send endpoints.
type MessageService struct {
	c *Client
}

// MediaRequest is the multipart body of send-media.
type MediaRequest struct {
	To             string
	FileName       string
	File           io.Reader
	Caption        string
	AntiBanOptions *wire.AntiBanOptions
}

// SendText sends a text message, optionally through the anti-ban queue.
func (s *MessageService) SendText(ctx context.Context, sessionID string, req wire.SendTextRequest) wire.Response[wire.SendResult] {
	return postJSON[wire.SendResult](ctx, s.c, req, "sessions", sessionID, "send-text")
}

// SendMedia streams a file as multipart/form-data.
func (s *MessageService) SendMedia(ctx context.Context, sessionID string, req MediaRequest) wire.Response[wire.SendResult] {
	if req.File == nil {
		return wire.Fail[wire.SendResult]("file is required")
	}
	var opts []byte
	if req.AntiBanOptions != nil {
		var err error
		if opts, err = json.Marshal(req.AntiBanOptions); err != nil {
			return wire.Fail[wire.SendResult]("encode antiBanOptions: " + err.Error())
		}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMedia(mw, req, opts))
	}()

	resp := call[wire.SendResult](ctx, s.c, http.MethodPost, []string{"sessions", sessionID, "send-media"}, nil, pr, mw.FormDataContentType())
	_ = pr.Close()
	return resp
}

// SendMediaFile opens path and sends it with SendMedia.
func (s *MessageService) SendMediaFile(ctx context.Context, sessionID, to, path, caption string, opts *wire.AntiBanOptions) wire.Response[wire.SendResult] {
	f, err := os.Open(path)
	if err != nil {
		return wire.Fail[wire.SendResult](fmt.Sprintf("open media: %v", err))
	}
	defer f.Close()
	return s.SendMedia(ctx, sessionID, MediaRequest{
		To:             to,
		FileName:       filepath.Base(path),
		File:           f,
		Caption:        caption,
		AntiBanOptions: opts,
	})
}

func writeMedia(mw *multipart.Writer, req MediaRequest, opts []byte) error {
	if err := mw.WriteField("to", req.To); err != nil {
		return err
	}
	name := req.FileName
	if name == "" {
		name = "upload"
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, req.File); err != nil {
		return fmt.Errorf("copy media: %w", err)
	}
	if req.Caption != "" {
		if err := mw.WriteField("caption", req.Caption); err != nil {
			return err
		}
	}
	if opts != nil {
		if err := mw.WriteField("antiBanOptions", string(opts)); err != nil {
			return err
		}
	}
	return mw.Close()
}
