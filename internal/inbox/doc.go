// Package inbox orchestrates the Gmail client, parser and chat converter
// into the operations the HTTP layer serves: conversation listing and
// retrieval, search, flat message listing, correspondent grouping and
// thread mutations.
//
// The service depends on the narrow Provider interface rather than on the
// concrete Gmail client, so every operation can be exercised against a
// fake in tests. Thread fetches fan out concurrently with a bounded
// worker count; mutations resolve a thread's member message IDs first and
// then issue a single batched label call per thread.
package inbox
