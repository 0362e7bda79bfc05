package specs

import "context"

// FetchPage retrieves one page of report data from the remote reporting service.
//
// Implementations own transport concerns: authentication, compression, retries
// and timeouts. They must honour ctx cancellation by aborting the in-flight request
// and returning an error.
//
// It is the transport boundary of this package and uses only primitive types.
// See gaapi.Transport for the Google Analytics Reporting v4 implementation.
type FetchPage func(ctx context.Context, request PageRequestSpec) (PageSpec, error)
