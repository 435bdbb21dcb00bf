package core

import (
	"context"
	"sync"
)

// AsyncMiddleware provides asynchronous middleware operations.
//
// It wraps the synchronous Middleware and executes each phase in a separate
// goroutine, returning results via channels. Useful when a host serves many
// users concurrently and wants to overlap pre-processing with other work.
//
// The client tracks all goroutines and provides Wait() to ensure all
// in-flight operations finish before shutdown.
//
// Example:
//
//	async, _ := core.NewAsyncMiddleware(config)
//	defer async.Close()
//
//	preChan := async.PreProcessAsync(ctx, "user_001", "What is recursion?")
//	pre := <-preChan
//	if pre.Error != nil {
//	    log.Fatal(pre.Error)
//	}
type AsyncMiddleware struct {
	*Middleware
	wg sync.WaitGroup
}

// PreProcessResult carries the outcome of an asynchronous pre-process call.
type PreProcessResult struct {
	// Context is the pre-processed turn context (nil on error).
	Context *PreProcessedContext

	// Error is the failure, if any.
	Error error
}

// PostProcessResult carries the outcome of an asynchronous post-process call.
type PostProcessResult struct {
	// Response is the post-processed response (nil on error).
	Response *PostProcessedResponse

	// Error is the failure, if any.
	Error error
}

// NewAsyncMiddleware creates an asynchronous middleware.
//
// Parameters:
//   - cfg: Middleware configuration
//   - opts: Optional collaborator overrides
//
// Returns the async middleware, or an error if initialization fails.
func NewAsyncMiddleware(cfg *Config, opts ...MiddlewareOption) (*AsyncMiddleware, error) {
	mw, err := NewMiddleware(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &AsyncMiddleware{Middleware: mw}, nil
}

// PreProcessAsync runs PreProcessMessage in a separate goroutine.
//
// Returns a channel that receives exactly one result and is then closed.
func (am *AsyncMiddleware) PreProcessAsync(ctx context.Context, userID, message string) <-chan *PreProcessResult {
	resultChan := make(chan *PreProcessResult, 1)
	am.wg.Add(1)

	go func() {
		defer am.wg.Done()
		pre, err := am.PreProcessMessage(ctx, userID, message)
		resultChan <- &PreProcessResult{Context: pre, Error: err}
		close(resultChan)
	}()

	return resultChan
}

// PostProcessAsync runs PostProcessResponse in a separate goroutine.
//
// Returns a channel that receives exactly one result and is then closed.
func (am *AsyncMiddleware) PostProcessAsync(ctx context.Context, userID, message, llmResponse string, preCtx *PreProcessedContext) <-chan *PostProcessResult {
	resultChan := make(chan *PostProcessResult, 1)
	am.wg.Add(1)

	go func() {
		defer am.wg.Done()
		post, err := am.PostProcessResponse(ctx, userID, message, llmResponse, preCtx)
		resultChan <- &PostProcessResult{Response: post, Error: err}
		close(resultChan)
	}()

	return resultChan
}

// Wait blocks until all in-flight asynchronous operations complete.
func (am *AsyncMiddleware) Wait() {
	am.wg.Wait()
}

// Close waits for in-flight operations and releases middleware resources.
func (am *AsyncMiddleware) Close() error {
	am.wg.Wait()
	return am.Middleware.Close()
}
