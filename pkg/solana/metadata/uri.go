package metadata

import "strings"

const (
	IPFSProtocolPrefix = "ipfs://"
	IPFSGatewayPrefix  = "https://gateway.pinata.cloud/ipfs/"
)

// ResolveURI rewrites content addressed URIs to an HTTPS gateway URL, since
// metadata consumers only follow resolvable links. Other URIs are unchanged.
func ResolveURI(uri string) string {
	if strings.HasPrefix(uri, IPFSProtocolPrefix) {
		return IPFSGatewayPrefix + strings.TrimPrefix(uri, IPFSProtocolPrefix)
	}
	return uri
}
