// Package httpclient sends the generator's HTTP requests.
//
// [RequestBuilder] turns a validated configuration into a [Request] template:
// method, target, extra headers and, for POST, PUT and PATCH, a [Payload].
// GET requests never carry a body.
//
//	builder, err := httpclient.NewRequestBuilder(cfg)
//	if err != nil {
//		return err
//	}
//	status, err := client.Send(ctx, builder.Build())
//
// [Client] wraps a pooled http.Client built by [NewClient]. Send reports the
// response status for every completed exchange, including 4xx and 5xx, and
// returns an error only when the transport fails.
package httpclient
