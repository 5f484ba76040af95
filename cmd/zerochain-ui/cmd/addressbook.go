package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zakimal/zero-chain-ui/internal/service"
)

var addressBookCmd = &cobra.Command{
	Use:     "addressbook",
	Aliases: []string{"book"},
	Short:   "管理地址簿",
}

var addressBookAddCmd = &cobra.Command{
	Use:   "add <name> <address>",
	Short: "添加联系人",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime()
		defer rt.close()

		entry, err := mustAddressBook(cmd.Context(), rt).Add(cmd.Context(), args[0], args[1])
		if err != nil {
			fmt.Printf("添加失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✅ 已添加 %s: %s\n", entry.Name, entry.Address)
	},
}

var addressBookListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出联系人",
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime()
		defer rt.close()

		entries, err := mustAddressBook(cmd.Context(), rt).List(cmd.Context())
		if err != nil {
			fmt.Printf("读取地址簿失败: %v\n", err)
			os.Exit(1)
		}
		if len(entries) == 0 {
			fmt.Println("地址簿为空")
			return
		}
		for _, e := range entries {
			fmt.Printf("%-16s %s\n", e.Name, e.Address)
		}
	},
}

var addressBookRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "删除联系人",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime()
		defer rt.close()

		if err := mustAddressBook(cmd.Context(), rt).Remove(cmd.Context(), args[0]); err != nil {
			fmt.Printf("删除失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("已删除 %s\n", args[0])
	},
}

func mustAddressBook(ctx context.Context, rt *runtime) *service.AddressBookService {
	book, err := rt.addressBook(ctx)
	if err != nil {
		fmt.Printf("打开地址簿失败: %v\n", err)
		os.Exit(1)
	}
	return service.NewAddressBookService(book)
}

func init() {
	addressBookCmd.AddCommand(addressBookAddCmd, addressBookListCmd, addressBookRemoveCmd)
	rootCmd.AddCommand(addressBookCmd)
}
