package detector

import regexp "github.com/wasilibs/go-re2"

// rawCredentialRe matches credential-shaped tokens that are specific enough
// to trust when scanning undecoded PDF bytes.
var rawCredentialRe = regexp.MustCompile(
	`(?:` + awsAccessKeyPattern + `)|(?:` + privateKeyPattern + `)|(?:` + apiKeyPattern + `)|(?:` + authTokenPattern + `)`,
)

// CredentialTokens scans a raw byte buffer for credential-shaped tokens and
// returns them in match order. The broad 40 character and UUID shapes are left
// out since binary stream data matches them constantly.
func CredentialTokens(data []byte) []string {
	matches := rawCredentialRe.FindAll(data, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = string(m)
	}
	return out
}
