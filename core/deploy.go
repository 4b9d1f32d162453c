package core

import (
	"fmt"
	"math/big"
)

// UniversalDeployerAddress is the Universal Deployer Contract present on Starknet networks
var UniversalDeployerAddress = MustParseFelt("0x041a78e741e5af2fec34b695679bc6891742439f7afb8484ecd7766661ad02bf")

const (
	EntrypointDeployContract = "deployContract"
	EntrypointTransfer       = "transfer"
	EventContractDeployed    = "ContractDeployed"
)

// DeployContractCall builds deployContract(class_hash, salt, unique, calldata)
func DeployContractCall(deployer, classHash, salt Felt, constructorCalldata []Felt) Call {
	calldata := []Felt{classHash, salt, FeltFromUint64(0), FeltFromUint64(uint64(len(constructorCalldata)))}
	calldata = append(calldata, constructorCalldata...)
	return Call{
		To:         deployer,
		Entrypoint: EntrypointDeployContract,
		Calldata:   calldata,
	}
}

// TransferCall builds an ERC20 transfer(recipient, amount: u256)
func TransferCall(token, recipient Felt, amount *big.Int) (Call, error) {
	low, high, err := SplitUint256(amount)
	if err != nil {
		return Call{}, err
	}
	return Call{
		To:         token,
		Entrypoint: EntrypointTransfer,
		Calldata:   []Felt{recipient, low, high},
	}, nil
}

// DeployedAddress reads the address from the deployer's ContractDeployed event
func DeployedAddress(receipt *Receipt, deployer Felt) (Felt, error) {
	key := Selector(EventContractDeployed)
	for _, ev := range receipt.Events {
		if !ev.FromAddress.Equal(deployer) || len(ev.Data) == 0 {
			continue
		}
		if len(ev.Keys) > 0 && !ev.Keys[0].Equal(key) {
			continue
		}
		return ev.Data[0], nil
	}
	return Felt{}, fmt.Errorf("no %s event in transaction %s", EventContractDeployed, receipt.TransactionHash)
}
