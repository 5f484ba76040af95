package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/zakimal/zero-chain-ui/internal/addressbook"
	"github.com/zakimal/zero-chain-ui/internal/chain"
)

type AddressBookService struct {
	book addressbook.Book
}

func NewAddressBookService(book addressbook.Book) *AddressBookService {
	return &AddressBookService{book: book}
}

// Add address 为账户地址的文本形式
func (s *AddressBookService) Add(ctx context.Context, name, address string) (*addressbook.Entry, error) {
	id, err := chain.ParseAccountID(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return s.book.Add(ctx, name, id)
}

func (s *AddressBookService) List(ctx context.Context) ([]addressbook.Entry, error) {
	return s.book.List(ctx)
}

func (s *AddressBookService) Remove(ctx context.Context, name string) error {
	return s.book.Remove(ctx, name)
}

// Resolve 地址优先，否则按地址簿名字查找
func (s *AddressBookService) Resolve(ctx context.Context, nameOrAddress string) (chain.AccountID, error) {
	id, parseErr := chain.ParseAccountID(nameOrAddress)
	if parseErr == nil {
		return id, nil
	}
	entry, err := s.book.ByName(ctx, nameOrAddress)
	if errors.Is(err, addressbook.ErrNotFound) || errors.Is(err, addressbook.ErrEmptyName) {
		return chain.AccountID{}, fmt.Errorf("%w: %v", ErrInvalidAddress, parseErr)
	}
	if err != nil {
		return chain.AccountID{}, err
	}
	return entry.Address, nil
}
