/*
Package dashsdk is a Go client for the staff dashboard HTTP API.

The request and response types in this package are the wire format; the
server encodes exactly these structs.

	client := dashsdk.NewClient("https://dash.example.com").WithBearer(token)

	enrollment, err := client.BeginSetup(ctx)
	// show enrollment.ProvisioningURI as a QR code, then
	codes, err := client.ConfirmSetup(ctx, "123456")

Requests can be authenticated with a bearer token issued by the identity
provider (WithBearer) or with a session cookie (WithCookie). Non-2xx
responses are returned as *APIError:

	var apiErr *dashsdk.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		// user no longer exists
	}
*/
package dashsdk
