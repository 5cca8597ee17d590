// Package tfs provides a native Go client for the work item tracking REST
// API of Team Foundation Server / Azure DevOps Server.
//
// # Features
//
//   - NTLM authentication scoped to the configured host
//   - JSON-patch documents for creating and updating work items
//   - Chunked batch retrieval with merged results
//   - Tagged results that separate values, empty responses, unparseable
//     bodies and failed requests
//   - Functional options, hclog logging, Prometheus metrics and
//     OpenTelemetry tracing
//
// # Quick Start
//
//	client, err := tfs.NewClient(
//	    tfs.WithHost("tfs.example.com", 443),
//	    tfs.WithCollection("DefaultCollection"),
//	    tfs.WithCredentials("CORP", "jdoe", password),
//	    tfs.WithStatusLogger(tfs.NewLogStatusLogger(logger)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	doc := tfs.NewPatchDocument().
//	    AddField(tfs.FieldPath(tfs.FieldTitle), "Investigate build break")
//
//	res, err := client.WorkItems.Create(ctx, doc, "Task", "Fabrikam")
//	if err != nil {
//	    log.Fatal(err) // status logger or request building failed
//	}
//	if !res.OK() {
//	    log.Printf("create failed: %s", res.Message())
//	}
//
// # Results
//
// Every operation returns a *Result tagged with its Kind:
//
//	switch res.Kind {
//	case tfs.KindValue:   // res.Value holds the parsed JSON
//	case tfs.KindEmpty:   // the server sent no content
//	case tfs.KindError:   // 200 response that is not JSON, res.Err is *ParseError
//	case tfs.KindFailure: // transport or HTTP failure, res.Err is *StatusError
//	}
//
// Use Result.Decode to copy a value into WorkItem, WorkItemList, QueryResult
// or AttachmentReference.
//
// # Status Logger
//
// Failed requests are reported to the StatusLogger once, with a message of
// the form "TFSClientAPI: HTTP Error 404 (Not Found)". The default logger
// returns ErrStatusLoggerNotImplemented, which aborts the operation, so
// deployments must install one with WithStatusLogger.
//
// # Query Parameters
//
// Parameters are sent verbatim, in the order they were set. After every read
// the client removes $expand, fields and ids; other parameters, including
// the attachment filename, persist until UnsetParameter is called.
//
// # Concurrency
//
// A Client is not safe for concurrent use.
package tfs
