package k8stest

import (
	"context"
	"fmt"
	"time"

	coreV1 "k8s.io/api/core/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// sleep between two polls of the k8s api
var pollSleep = time.Second

func MkNamespace(nameSpace string) error {
	logf.Log.Info("Creating", "namespace", nameSpace)
	nsSpec := coreV1.Namespace{ObjectMeta: metaV1.ObjectMeta{Name: nameSpace}}
	_, err := gTestEnv.KubeInt.CoreV1().Namespaces().Create(context.TODO(), &nsSpec, metaV1.CreateOptions{})
	return err
}

//EnsureNamespace ensure that a namespace exists, creates namespace if not found.
func EnsureNamespace(nameSpace string) error {
	_, err := gTestEnv.KubeInt.CoreV1().Namespaces().Get(context.TODO(), nameSpace, metaV1.GetOptions{})
	if err == nil {
		return nil
	}
	if !k8serrors.IsNotFound(err) {
		return err
	}
	return MkNamespace(nameSpace)
}

// RmNamespace deletes a namespace, a namespace that does not exist is not an error.
func RmNamespace(nameSpace string) error {
	logf.Log.Info("Deleting", "namespace", nameSpace)
	err := gTestEnv.KubeInt.CoreV1().Namespaces().Delete(context.TODO(), nameSpace, metaV1.DeleteOptions{})
	if k8serrors.IsNotFound(err) {
		return nil
	}
	return err
}

func MakeAccumulatedError(accErr error, err error) error {
	if accErr == nil {
		return err
	}
	if err == nil {
		return accErr
	}
	return fmt.Errorf("%v; %v", accErr, err)
}
