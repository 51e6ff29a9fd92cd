// Command zfsync replicates ZFS snapshots between a source and a
// destination dataset tree, locally or over ssh.
package main

import "os"

func main() {
	os.Exit(run())
}

func run() int {
	if err := rootCmd.Execute(); err != nil {
		return exitCodeFor(err)
	}
	return exitOK
}
