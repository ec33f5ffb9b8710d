package integrations_test

import (
	"fmt"

	"github.com/matzehuels/esmstat/pkg/integrations"
)

func ExampleNormalizeRepoURL() {
	// Various repository URL formats are normalized to HTTPS
	fmt.Println(integrations.NormalizeRepoURL("git@github.com:user/repo.git"))
	fmt.Println(integrations.NormalizeRepoURL("git://github.com/user/repo"))
	fmt.Println(integrations.NormalizeRepoURL("git+https://github.com/npm/security-holder.git"))
	fmt.Println(integrations.NormalizeRepoURL("npm/security-holder"))
	// Output:
	// https://github.com/user/repo
	// https://github.com/user/repo
	// https://github.com/npm/security-holder
	// npm/security-holder
}

func Example_errors() {
	// Standard errors for registry operations
	fmt.Println("ErrNotFound:", integrations.ErrNotFound)
	fmt.Println("ErrNetwork:", integrations.ErrNetwork)
	fmt.Println("ErrUnauthorized:", integrations.ErrUnauthorized)
	// Output:
	// ErrNotFound: resource not found
	// ErrNetwork: network error
	// ErrUnauthorized: unauthorized
}
