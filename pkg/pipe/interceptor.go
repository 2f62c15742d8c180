package pipe

// Interceptor hooks into dispatch. Pipes only consult one when built with
// Debug set.
type Interceptor interface {
	// InterceptBridgeCall may rewrite a call before lookup.
	InterceptBridgeCall(call Call) Call
	// InvokeBridgeResult may answer a call without dispatching it.
	InvokeBridgeResult(call Call) (Response, bool)
	// InterceptBridgeResult may rewrite the response of a dispatched call.
	InterceptBridgeResult(call Call, resp Response) Response
}

// AliasResolver maps an alternative method name to its canonical name.
type AliasResolver interface {
	ResolveAlias(name string) string
}
