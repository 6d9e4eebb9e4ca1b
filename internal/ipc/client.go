package ipc

import (
	"context"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"heicrop/internal/crop"
)

const dialTimeout = 2 * time.Second

// Client provides RPC access to a running session.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// call issues method and waits for the reply or ctx. Server errors come back
// as *RemoteError.
func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pending := c.client.Go(ServiceName+"."+method, req, resp, make(chan *rpc.Call, 1))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case done := <-pending.Done:
		return decodeError(done.Error)
	}
}

func (c *Client) action(ctx context.Context, method string, req any) (*ActionResponse, error) {
	var resp ActionResponse
	if err := c.call(ctx, method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit uploads a file for conversion.
func (c *Client) Submit(ctx context.Context, name string, data []byte) (*ActionResponse, error) {
	return c.action(ctx, "Submit", SubmitRequest{Name: name, Data: data})
}

// StartCrop opens the crop widget on the converted image.
func (c *Client) StartCrop(ctx context.Context) (*ActionResponse, error) {
	return c.action(ctx, "StartCrop", StartCropRequest{})
}

// ApplyCrop commits the current selection.
func (c *Client) ApplyCrop(ctx context.Context) (*ActionResponse, error) {
	return c.action(ctx, "ApplyCrop", ApplyCropRequest{})
}

// ResetCrop restores the widget to its initial state.
func (c *Client) ResetCrop(ctx context.Context) (*ActionResponse, error) {
	return c.action(ctx, "ResetCrop", ResetCropRequest{})
}

// NewImage discards every image.
func (c *Client) NewImage(ctx context.Context) (*ActionResponse, error) {
	return c.action(ctx, "NewImage", NewImageRequest{})
}

// Adjust applies one widget adjustment.
func (c *Client) Adjust(ctx context.Context, adj crop.Adjustment) (*ActionResponse, error) {
	return c.action(ctx, "Adjust", AdjustRequest{Adjustment: adj})
}

// Download exports the crop under name, or the default name when empty.
func (c *Client) Download(ctx context.Context, name string) (*DownloadResponse, error) {
	var resp DownloadResponse
	if err := c.call(ctx, "Download", DownloadRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the session status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call(ctx, "Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Preview fetches the live image with the given tag.
func (c *Client) Preview(ctx context.Context, tag string) (*PreviewResponse, error) {
	var resp PreviewResponse
	if err := c.call(ctx, "Preview", PreviewRequest{Tag: tag}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns session log lines.
func (c *Client) LogTail(ctx context.Context, req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.call(ctx, "LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the session process to exit.
func (c *Client) Shutdown(ctx context.Context) (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.call(ctx, "Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
