// Package mocks provides shared mock implementations for testing.
//
// Mocks use function fields for behavior and record every call:
//
//	gw := mocks.NewMockGateway()
//	gw.GenerateRooftopLayoutFunc = func(context.Context, string) (string, error) {
//	    return "", errors.New("boom")
//	}
//	wf := workflow.New(gw)
//
// # Available Mocks
//
//   - MockTextClient: llm.TextClient
//   - MockImageClient: llm.ImageClient
//   - MockGateway: workflow.Gateway
package mocks
