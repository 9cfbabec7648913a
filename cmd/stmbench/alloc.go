package main

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/cobra"

	stm "github.com/halvardoss/tl2stm"
)

func newAllocCommand() *cobra.Command {
	var callers int

	cmd := &cobra.Command{
		Use:   "alloc",
		Short: "Concurrently calls Alloc and checks the block addresses handed out are distinct",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlloc(callers)
		},
	}

	cmd.Flags().IntVar(&callers, "callers", 2, "number of concurrent allocators")

	return cmd
}

func runAlloc(callers int) error {
	m := stm.NewManager()
	if err := m.Create(0, stm.Alignment); err != nil {
		return err
	}

	addrs := make([]stm.VirtualAddr, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			h := m.Begin(false)
			addr, err := m.Alloc(h, uint64(stm.Alignment))
			m.End(h)
			if err == nil {
				addrs[i] = addr
			}
		}(i)
	}
	wg.Wait()

	sorted := append([]stm.VirtualAddr(nil), addrs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	distinct := true
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			distinct = false
		}
	}
	fmt.Printf("addresses=%v distinct=%v\n", addrs, distinct)
	return nil
}
