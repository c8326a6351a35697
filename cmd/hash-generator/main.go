// Command hash-generator produces a bcrypt hash for a password supplied on
// the command line. The output is suitable for seeding user rows directly,
// for example when creating an initial TEAM_LEADER account.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/phrazzld/taskmgmt-api/internal/service/auth"
)

func main() {
	cost := flag.Int("cost", 0, "bcrypt cost (0 uses the library default)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: hash-generator [-cost N] <password>")
		os.Exit(2)
	}

	hasher := auth.NewBcryptHasher(*cost)
	hash, err := hasher.Hash(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
