// Command hash-key prints a bcrypt hash of an admin access key for use as
// ADMIN_ACCESS_KEY_HASH.
//
//	go run ./cmd/hash-key <access-key>
package main

import (
	"fmt"
	"os"

	applog "insureportal-backend/shared/logger"
	utils "insureportal-backend/shared/utils/auth"
)

func main() {
	applog.Setup("info", "console")

	if len(os.Args) != 2 || os.Args[1] == "" {
		fmt.Fprintln(os.Stderr, "usage: hash-key <access-key>")
		os.Exit(2)
	}

	hash, err := utils.HashAccessKey(os.Args[1])
	if err != nil {
		applog.Fatal().Err(err).Msg("Failed to hash access key")
	}
	fmt.Println(hash)
}
