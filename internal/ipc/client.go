package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"github.com/google/uuid"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func newRequest() Request {
	return Request{RequestID: uuid.NewString()}
}

func (c *Client) call(method string, args any, reply any) error {
	return c.client.Call(ServiceName+"."+method, args, reply)
}

// Add submits source files for planning.
func (c *Client) Add(paths []string) (*AddResponse, error) {
	var resp AddResponse
	if err := c.call("Add", AddRequest{Request: newRequest(), Paths: paths}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start opens the queue.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.call("Start", StartRequest{Request: newRequest()}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop hard-stops the queue. It returns once the running tool has exited.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.call("Stop", StopRequest{Request: newRequest()}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Delete removes the job with jobID. A step >= 0 names a step of that job.
func (c *Client) Delete(jobID string, step int) (*DeleteResponse, error) {
	var resp DeleteResponse
	req := DeleteRequest{Request: newRequest(), JobID: jobID, Step: step}
	if err := c.call("Delete", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Clear empties an idle queue.
func (c *Client) Clear() (*ClearResponse, error) {
	var resp ClearResponse
	if err := c.call("Clear", ClearRequest{Request: newRequest()}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns the job tree.
func (c *Client) List() (*ListResponse, error) {
	var resp ListResponse
	if err := c.call("List", ListRequest{Request: newRequest()}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns up to limit finished jobs.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.call("History", HistoryRequest{Request: newRequest(), Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{Request: newRequest()}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.call("TestNotification", TestNotificationRequest{Request: newRequest()}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.call("Shutdown", ShutdownRequest{Request: newRequest()}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
